package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/klabu/core/session"
)

func TestConsoleLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewConsoleLogger(log.New(buf, "", 0), false)

	logger.Debug("hidden")
	logger.Info("schools: page 2 fetched")
	logger.Warn("members: page 9 out of range", errors.New("clamped to 3"), map[string]interface{}{"total": 27})
	logger.Error("invoices: fetch failed", session.Member{ID: 7, Name: "Mado"})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 3)
	assert.Equal(t, "INFO schools: page 2 fetched", string(lines[0]))
	assert.Equal(t, "WARN members: page 9 out of range | clamped to 3 | map[total:27]", string(lines[1]))
	assert.Contains(t, string(lines[2]), "ERROR invoices: fetch failed | ")
	assert.Empty(t, logger.Entries(""), "only mocks record")
}

func TestConsoleLoggerMock(t *testing.T) {
	logger := NewConsoleLoggerMock()
	logger.Debug("stale response dropped")
	logger.Warn("clamped")
	logger.Warn("clamped again")

	assert.Len(t, logger.Entries(""), 3)
	warns := logger.Entries("WARN")
	assert.Len(t, warns, 2)
	assert.Equal(t, "clamped again", warns[1].Msg)
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := RollbarLogger{std: log.New(new(bytes.Buffer), "", 0)}
	err := errors.New("boom")
	extras := map[string]interface{}{"screen": "members"}

	args := logger.prepare("refresh failed", []interface{}{err, session.Member{ID: 2}, extras, session.Member{ID: 3}})
	assert.Equal(t, []interface{}{"refresh failed", err, extras}, args)
}

func Test_formatID(t *testing.T) {
	assert.Equal(t, "42", formatID(42))
}
