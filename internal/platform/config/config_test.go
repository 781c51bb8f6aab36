package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lucy/internal/domains"
)

func lookupFrom(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := load(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, ModeOrchestrator, cfg.Mode)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, domains.Knowledge, cfg.DefaultDomain)
	assert.Equal(t, 60*time.Second, cfg.Responder.CallTimeout)
	assert.Equal(t, 30*time.Second, cfg.Responder.EvaluatorTimeout)
	assert.Equal(t, 5*time.Second, cfg.Responder.HealthTimeout)
	assert.Empty(t, cfg.Responder.URLs)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestResponderURLsAndBackends(t *testing.T) {
	cfg, err := load(lookupFrom(map[string]string{
		"LUCY_COMMUNICATIONS_URL": "http://comms:8001",
		"LUCY_DATA_URL":           " http://data:8005 ",
		"LUCY_EVALUATOR_URL":      "http://evaluator:8009",
		"LUCY_KAFKA_BROKERS":      "k1:9092, k2:9092,",
		"LUCY_CALL_TIMEOUT":       "15s",
		"LUCY_DEFAULT_DOMAIN":     "Personal",
	}))
	require.NoError(t, err)

	assert.Equal(t, map[domains.Domain]string{
		domains.Communications: "http://comms:8001",
		domains.Data:           "http://data:8005",
	}, cfg.Responder.URLs)
	assert.Equal(t, "http://evaluator:8009", cfg.Responder.EvaluatorURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 15*time.Second, cfg.Responder.CallTimeout)
	assert.Equal(t, domains.Personal, cfg.DefaultDomain)
}

func TestInvalid(t *testing.T) {
	cases := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"unknown mode", map[string]string{"LUCY_MODE": "worker"}, `unknown LUCY_MODE "worker"`},
		{"assistant without domain", map[string]string{"LUCY_MODE": "assistant"}, "LUCY_ASSISTANT"},
		{"assistant for the evaluator", map[string]string{"LUCY_MODE": "assistant", "LUCY_ASSISTANT": "evaluator"}, "LUCY_ASSISTANT"},
		{"bad duration", map[string]string{"LUCY_CALL_TIMEOUT": "soon"}, "LUCY_CALL_TIMEOUT"},
		{"bad int", map[string]string{"LUCY_REPLAY_CAPACITY": "many"}, "LUCY_REPLAY_CAPACITY"},
		{"unknown default", map[string]string{"LUCY_DEFAULT_DOMAIN": "weather"}, "LUCY_DEFAULT_DOMAIN"},
		{"non routable default", map[string]string{"LUCY_DEFAULT_DOMAIN": "orchestrator"}, "not routable"},
		{"zero timeout", map[string]string{"LUCY_HEALTH_TIMEOUT": "0s"}, "timeouts must be positive"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(lookupFrom(tc.vars))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestAssistantMode(t *testing.T) {
	cfg, err := load(lookupFrom(map[string]string{"LUCY_MODE": "Assistant", "LUCY_ASSISTANT": "dev"}))
	require.NoError(t, err)
	assert.Equal(t, ModeAssistant, cfg.Mode)
	assert.Equal(t, domains.Dev, cfg.Assistant)
}
