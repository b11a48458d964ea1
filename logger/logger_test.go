package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInit_LevelAndFormat(t *testing.T) {
	Init("debug", "json")
	if Log.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", Log.GetLevel())
	}
	if _, ok := Log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want *logrus.JSONFormatter", Log.Formatter)
	}

	var buf bytes.Buffer
	SetOutput(&buf)
	Log.WithField("mob", 7).Debug("hello")
	if !strings.Contains(buf.String(), `"mob":7`) {
		t.Errorf("output = %q, want mob field", buf.String())
	}
}

func TestInit_UnknownLevel(t *testing.T) {
	Init("loud", "text")
	if Log.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info", Log.GetLevel())
	}
	if _, ok := Log.Formatter.(*logrus.TextFormatter); !ok {
		t.Errorf("formatter = %T, want *logrus.TextFormatter", Log.Formatter)
	}
}
