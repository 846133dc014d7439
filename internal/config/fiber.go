package config

import (
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
)

// NewFiber creates the HTTP app. bodyLimit bounds uploaded images.
func NewFiber(bodyLimit int) *fiber.App {
	if bodyLimit <= 0 {
		bodyLimit = 10 << 20
	}
	return fiber.New(fiber.Config{
		AppName:               "txn-verifier",
		BodyLimit:             bodyLimit,
		StrictRouting:         true,
		CaseSensitive:         true,
		DisableStartupMessage: true,
		JSONEncoder:           jsoniter.Marshal,
		JSONDecoder:           jsoniter.Unmarshal,
	})
}
