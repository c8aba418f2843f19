package packages

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/BearBump/SkyRush/internal/models"
	"github.com/pkg/errors"
)

const (
	trackingAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	trackingLength   = 9
)

func newTrackingNumber() (string, error) {
	return trackingNumberFrom(rand.Reader)
}

func trackingNumberFrom(r io.Reader) (string, error) {
	buf := make([]byte, 0, len(models.TrackingNumberPrefix)+trackingLength)
	buf = append(buf, models.TrackingNumberPrefix...)
	base := big.NewInt(int64(len(trackingAlphabet)))
	for i := 0; i < trackingLength; i++ {
		n, err := rand.Int(r, base)
		if err != nil {
			return "", errors.Wrap(err, "tracking number entropy")
		}
		buf = append(buf, trackingAlphabet[n.Int64()])
	}
	return string(buf), nil
}
