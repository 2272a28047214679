package logger_test

import (
	"bytes"
	"encoding/json"

	"github.com/caronae/caronae-dw/logger"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Logger", func() {
	l := logger.NewLogger("test-service", "debug", true)

	capture := func(fn func()) map[string]interface{} {
		logOutput := bytes.NewBufferString("")
		l.SetOutput(logOutput)
		fn()
		var actual map[string]interface{}
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())
		return actual
	}

	It("Should have `test-service` as service name", func() {
		actual := capture(func() { l.Info("Testing") })
		Expect(actual["service"]).To(Equal("test-service"))
	})

	It("Should have info as log level", func() {
		actual := capture(func() { l.Info("Testing") })
		Expect(actual["level"]).To(Equal("info"))
	})

	It("Should have warn as log level", func() {
		actual := capture(func() { l.Warn("Testing") })
		Expect(actual["level"]).To(Equal("warning"))
	})

	It("Should have error as log level with a stack trace", func() {
		actual := capture(func() { l.Error("Testing") })
		Expect(actual["level"]).To(Equal("error"))
		Expect(actual["stackTrace"]).ToNot(BeNil())
	})

	It("Should have `Testing` as msg", func() {
		actual := capture(func() { l.Info("Testing") })
		Expect(actual["msg"]).To(Equal("Testing"))
	})

	It("Should carry fields added by WithField", func() {
		actual := capture(func() { l.WithField("step", "dim_user").Info("Testing") })
		Expect(actual["step"]).To(Equal("dim_user"))
		Expect(actual["service"]).To(Equal("test-service"))
	})

	It("Should not log debug entries at info level", func() {
		quiet := logger.NewLogger("quiet", "info", false)
		logOutput := bytes.NewBufferString("")
		quiet.SetOutput(logOutput)
		quiet.Debug("hidden")
		Expect(logOutput.Len()).To(BeZero())
	})
})
