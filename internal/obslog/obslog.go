// Package obslog adapts ufs1.Logger to github.com/sirupsen/logrus, the
// structured-logging library this module depends on.
package obslog

import (
	"github.com/sirupsen/logrus"

	"github.com/ffsnfs/ffsnfs/ufs1"
)

// Logrus wraps a *logrus.Entry to satisfy ufs1.Logger.
type Logrus struct {
	entry *logrus.Entry
}

var _ ufs1.Logger = Logrus{}

// New builds a Logrus logger tagged with the given image path, so every
// warning a mounted filesystem emits is traceable to its source image.
func New(imagePath string) Logrus {
	return Logrus{entry: logrus.WithField("image", imagePath)}
}

// Warn implements ufs1.Logger by attaching kv as alternating key/value
// logrus fields.
func (l Logrus) Warn(msg string, kv ...any) {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields[key] = kv[i+1]
	}
	l.entry.WithFields(fields).Warn(msg)
}
