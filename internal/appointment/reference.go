package appointment

import (
	"crypto/rand"
	"math/big"
	"regexp"

	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
)

const (
	ReferencePrefix = "APT"
	referenceSuffix = 6
	referenceAlpha  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var referencePattern = regexp.MustCompile(`^APT[0-9]{8}[A-Z0-9]{6}$`)

// NewReference builds a code of the form APT + YYYYMMDD + 6 random [A-Z0-9].
func NewReference(issued calendar.Date) (string, error) {
	buf := make([]byte, 0, len(ReferencePrefix)+8+referenceSuffix)
	buf = append(buf, ReferencePrefix...)
	buf = append(buf, issued.Stamp()...)

	max := big.NewInt(int64(len(referenceAlpha)))
	for i := 0; i < referenceSuffix; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf = append(buf, referenceAlpha[n.Int64()])
	}
	return string(buf), nil
}

func ValidReference(code string) bool {
	return referencePattern.MatchString(code)
}
