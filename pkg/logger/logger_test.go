package logger

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

var _ = Describe("NewLogger", func() {
	It("drops debug messages by default", func() {
		var buf bytes.Buffer
		log := newLogger(&buf, false)
		log.Debug("hidden")
		log.Info("shown", zap.String("variant", "single_turn"))

		Expect(buf.String()).NotTo(ContainSubstring("hidden"))
		Expect(buf.String()).To(ContainSubstring("shown"))
		Expect(buf.String()).To(ContainSubstring(`{"variant": "single_turn"}`))
	})

	It("writes debug messages in debug mode", func() {
		var buf bytes.Buffer
		newLogger(&buf, true).Debug("visible")
		Expect(buf.String()).To(ContainSubstring("visible"))
		Expect(buf.String()).To(ContainSubstring("logger_test.go"))
	})
})
