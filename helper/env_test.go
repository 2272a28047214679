package helper

import (
	"os"
	"testing"
)

func TestReadValueFromEnvWithDefault(t *testing.T) {
	name := "CDW_TEST_READ_VALUE"
	_ = os.Unsetenv(name)
	if v := ReadValueFromEnvWithDefault(name, "fallback"); v != "fallback" {
		t.Fatalf("expected default value; got %q", v)
	}
	_ = os.Setenv(name, "set")
	defer os.Unsetenv(name)
	if v := ReadValueFromEnvWithDefault(name, "fallback"); v != "set" {
		t.Fatalf("expected env value; got %q", v)
	}
}

func TestGetEnvVarMandatory(t *testing.T) {
	name := "CDW_TEST_MANDATORY"
	_ = os.Unsetenv(name)
	if _, err := GetEnvVar(name, true); err == nil {
		t.Fatal("expected an error for a missing mandatory variable")
	}
	if v, err := GetEnvVar(name, false); err != nil || v != "" {
		t.Fatalf("expected empty value without error; got %q, %v", v, err)
	}
}

func TestGetDsnEnvVarName(t *testing.T) {
	if got := GetDsnEnvVarName(" warehouse "); got != "CDW_WAREHOUSE_DSN" {
		t.Fatalf("unexpected env var name %q", got)
	}
}
