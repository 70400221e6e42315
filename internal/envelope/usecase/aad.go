package usecase

import (
	"bytes"
	"encoding/json"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
)

// aadCandidate derives one possible AAD for an envelope. ok is false when the
// candidate does not apply.
type aadCandidate struct {
	name  string
	build func(env *cryptoDomain.Envelope) (aad []byte, ok bool)
}

// aadCandidates is tried in order on decrypt. Envelopes written by earlier
// releases authenticated the context under different serializations; the stored
// AAD bytes, when present, are always tried first.
var aadCandidates = []aadCandidate{
	{
		name:  "stored",
		build: storedAAD,
	},
	{
		name:  cryptoDomain.SerializeCanonical.String(),
		build: serializedContext(cryptoDomain.SerializeCanonical),
	},
	{
		name:  cryptoDomain.SerializeSorted.String(),
		build: serializedContext(cryptoDomain.SerializeSorted),
	},
	{
		// context-less envelopes, including every app-scoped one, authenticate no associated data
		name: "none",
		build: func(env *cryptoDomain.Envelope) ([]byte, bool) {
			return nil, len(env.Context) == 0
		},
	},
}

// storedAAD applies only when the stored bytes describe the same context the
// envelope carries, so an edited ctx cannot ride on an intact aad.
func storedAAD(env *cryptoDomain.Envelope) ([]byte, bool) {
	if len(env.AssociatedData) == 0 {
		return nil, false
	}
	if len(env.Context) == 0 {
		return env.AssociatedData, true
	}
	var authenticated cryptoDomain.EncryptionContext
	if err := json.Unmarshal(env.AssociatedData, &authenticated); err != nil {
		return nil, false
	}
	if !authenticated.Equal(env.Context) {
		return nil, false
	}
	return env.AssociatedData, true
}

func serializedContext(rule cryptoDomain.SerializationRule) func(*cryptoDomain.Envelope) ([]byte, bool) {
	return func(env *cryptoDomain.Envelope) ([]byte, bool) {
		if len(env.Context) == 0 {
			return nil, false
		}
		aad, err := env.Context.Serialize(rule)
		if err != nil {
			return nil, false
		}
		return aad, true
	}
}

type attempt struct {
	name string
	aad  []byte
}

// aadAttempts evaluates the candidates for env, dropping byte-identical repeats.
func aadAttempts(env *cryptoDomain.Envelope) []attempt {
	attempts := make([]attempt, 0, len(aadCandidates))
	for _, candidate := range aadCandidates {
		aad, ok := candidate.build(env)
		if !ok {
			continue
		}
		duplicate := false
		for _, prev := range attempts {
			if bytes.Equal(prev.aad, aad) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			attempts = append(attempts, attempt{name: candidate.name, aad: aad})
		}
	}
	return attempts
}
