package cmd

import (
	"errors"
	"testing"

	"github.com/caronae/caronae-dw/config"
)

func TestGetCliFlag(t *testing.T) {
	defer setupTwelveFactorMode()
	fnGetConfig := func(key string, out interface{}) error {
		return config.KeyNotFoundError{}
	}
	flagName := "mock"
	mockEnvVar := flagNameToEnvVar(flagName)
	expected := "envTest"
	d := "myDefault"
	// Test 1 - test default value applied to mock CLI flag.
	twelveFactorMode = false
	got := switches.getCliFlag(flagName, d, fnGetConfig)
	if got.val != d { // if no default was applied...
		t.Fatalf("test 1 failed: expected default value %v to be applied to mock CLI flag; got %v", d, got.val)
	}
	// Test 2 - fetch flag value from environment when it is not set - expect default value to be applied.
	twelveFactorMode = true // enable twelveFactorMode so that env variables are read.
	t.Setenv(mockEnvVar, "")
	got = switches.getCliFlag(flagName, d, fnGetConfig)
	if got.val != d {
		t.Fatalf("test 2 failed: expected default value (%v) to be applied to mock CLI flag fetched via environment variable (%v)", d, mockEnvVar)
	}
	// Test 3 - fetch flag value from environment after setting it explicitly (requires twelveFactorMode).
	t.Setenv(mockEnvVar, expected)
	got = switches.getCliFlag(flagName, d, fnGetConfig)
	if got.val != expected {
		t.Fatalf("test 3 failed: expected value (%v) to be applied to mock CLI flag (%v) fetched from environment variable (%v); got: %v", expected, flagName, mockEnvVar, got.val)
	}
}

func TestGetCliFlagFromConfig(t *testing.T) {
	defer setupTwelveFactorMode()
	twelveFactorMode = false
	fnGetConfig := func(key string, out interface{}) error {
		if key != "log-level" {
			return errors.New("unexpected key")
		}
		*out.(*string) = "debug"
		return nil
	}
	if got := switches.getCliFlag("log-level", "info", fnGetConfig); got.val != "debug" {
		t.Fatalf("expected the config value; got %v", got.val)
	}
}

func TestGetCliFlagPanicsForUnknownFlag(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	switches.getCliFlag("junk", "", func(key string, out interface{}) error { return nil })
}

func TestFlagNameToEnvVar(t *testing.T) {
	if got := flagNameToEnvVar("log-level"); got != envVarLogLevel {
		t.Fatalf("expected %v; got %v", envVarLogLevel, got)
	}
	if got := flagNameToEnvVar("reset-watermark"); got != "CDW_RESET_WATERMARK" {
		t.Fatalf("unexpected env var %v", got)
	}
}
