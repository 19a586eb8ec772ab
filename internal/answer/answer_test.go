package answer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"jobis/internal/prompt"
)

type countingBackend struct {
	calls       int
	reply       string
	err         error
	delay       time.Duration
	prompt      string
	temperature float64
}

func (b *countingBackend) Generate(ctx context.Context, p string, temperature float64) (string, error) {
	b.calls++
	b.prompt = p
	b.temperature = temperature
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return b.reply, b.err
}

func TestGenerate_EmptyContextDeclinesWithoutBackend(t *testing.T) {
	for _, ctxText := range []string{"", "   \n\t"} {
		b := &countingBackend{reply: "should not be used"}
		a, err := New(b)
		require.NoError(t, err)

		got := a.Generate(context.Background(), ctxText, "복지가 좋은 회사는?")
		assert.Equal(t, prompt.DefaultDeclinePhrase, got)
		assert.Equal(t, 0, b.calls)
	}
}

func TestGenerate_SendsGroundedPrompt(t *testing.T) {
	b := &countingBackend{reply: "  Acme Corp offers unlimited vacation.  "}
	a, err := New(b, WithTemperature(0.1))
	require.NoError(t, err)

	got := a.Generate(context.Background(), "[Acme Corp]\nAcme Corp offers unlimited vacation", "vacation policy")
	assert.Equal(t, "Acme Corp offers unlimited vacation.", got)
	assert.Equal(t, 1, b.calls)
	assert.InDelta(t, 0.1, b.temperature, 1e-9)
	assert.Contains(t, b.prompt, "[Acme Corp]\nAcme Corp offers unlimited vacation")
	assert.Contains(t, b.prompt, "vacation policy")
	assert.Contains(t, b.prompt, prompt.DefaultDeclinePhrase)
}

func TestGenerate_FailuresAreRecoverable(t *testing.T) {
	tests := []struct {
		name    string
		backend *countingBackend
		timeout time.Duration
	}{
		{name: "backend error", backend: &countingBackend{err: errors.New("quota exceeded")}},
		{name: "blank completion", backend: &countingBackend{reply: "  "}},
		{name: "timeout", backend: &countingBackend{reply: "late", delay: time.Second}, timeout: 20 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			a, err := New(tt.backend,
				WithTimeout(tt.timeout),
				WithErrorMessage("잠시 후 다시 시도"),
				WithLogger(zap.New(core)))
			require.NoError(t, err)

			got := a.Generate(context.Background(), "[A]\nsome context", "q")
			assert.Equal(t, "잠시 후 다시 시도", got)
			assert.Equal(t, 1, tt.backend.calls)
			assert.Equal(t, 1, logs.FilterMessage("generation failed").Len())
		})
	}
}

func TestNew_RejectsInvalidTemplate(t *testing.T) {
	tmpl := prompt.Default()
	tmpl.DeclinePhrase = ""
	_, err := New(&countingBackend{}, WithTemplate(tmpl))
	assert.Error(t, err)

	_, err = New(&countingBackend{}, WithTemperature(-1))
	assert.Error(t, err)
}

func TestGenerate_CustomDeclinePhrase(t *testing.T) {
	tmpl := prompt.Default()
	tmpl.DeclinePhrase = "I don't know."
	a, err := New(&countingBackend{}, WithTemplate(tmpl))
	require.NoError(t, err)
	assert.Equal(t, "I don't know.", a.Generate(context.Background(), "", "q"))
	assert.Equal(t, "I don't know.", a.DeclinePhrase())
}
