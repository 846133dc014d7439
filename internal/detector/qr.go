package detector

import (
	"context"
	"errors"
	"fmt"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/txn-verifier/internal/parser"
)

// decodeQR returns the payload of the first QR code in the raster, or "" if
// none can be read.
func decodeQR(r *Raster) (payload string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("QR reader crashed: %v", rec)
		}
	}()

	bmp, err := gozxing.NewBinaryBitmapFromImage(r.Pixels)
	if err != nil {
		return "", err
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	res, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", err
	}
	return res.GetText(), nil
}

// fromQRCode is the first detection strategy. Read failures are not errors:
// most screenshots carry no QR code at all.
func (d *Detector) fromQRCode(_ context.Context, r *Raster) (string, error) {
	payload, err := decodeQR(r)
	if err != nil {
		var notFound gozxing.NotFoundException
		if !errors.As(err, &notFound) {
			d.log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Debug("QR code present but unreadable")
		}
		return "", nil
	}

	id, ok := parser.FindTransactionID(payload)
	if !ok {
		d.log.WithFields(logrus.Fields{
			"payload_length": len(payload),
		}).Debug("QR payload carries no transaction id")
		return "", nil
	}
	return id, nil
}
