package event

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRabbitPublisher_DisabledWithoutURL(t *testing.T) {
	p, err := NewRabbitPublisher("", "survey.events", zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, p.enabled)

	assert.NoError(t, p.Publish(context.Background(), TypeSurveySubmitted, map[string]int{"answers": 3}))
	assert.NoError(t, p.Close())
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), TypeQuestionsCreated, nil))
	assert.NoError(t, p.Close())
}
