package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comercialpereira/backend/internal/config"
)

const strongSecret = "0123456789abcdef0123456789abcdef"

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"short secret", config.Config{AuthSecret: "short", ManagerPIN: "739154"}, "AUTH_SECRET"},
		{"missing pin", config.Config{AuthSecret: strongSecret}, "MANAGER_PIN must be set"},
		{"short pin", config.Config{AuthSecret: strongSecret, ManagerPIN: "7391"}, "MANAGER_PIN must be set"},
		{"letters", config.Config{AuthSecret: strongSecret, ManagerPIN: "73a154"}, "digits only"},
		{"sequential", config.Config{AuthSecret: strongSecret, ManagerPIN: "345678"}, "too weak"},
		{"common", config.Config{AuthSecret: strongSecret, ManagerPIN: "123123"}, "too weak"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateSecurityConfig(tc.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: strongSecret, ManagerPIN: "739154"})
	assert.NoError(t, err)
}

func TestValidatePINStrength(t *testing.T) {
	assert.EqualError(t, validatePINStrength("777777"), "all-same-digit PIN not allowed")
	assert.EqualError(t, validatePINStrength("987654"), "sequential PIN not allowed")
	assert.EqualError(t, validatePINStrength("23456789"), "sequential PIN not allowed")
	assert.EqualError(t, validatePINStrength("654321"), "common PIN not allowed")
	assert.NoError(t, validatePINStrength("739154"))
	assert.NoError(t, validatePINStrength("1357924680"))
}
