package detectors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-guildwatch/internal/models"
)

func TestVoiceHopTriggered(t *testing.T) {
	assert.False(t, VoiceHopTriggered(5, 6))
	assert.True(t, VoiceHopTriggered(6, 6))
	assert.True(t, VoiceHopTriggered(20, 6))
	assert.False(t, VoiceHopTriggered(100, 0))
}

func TestRoleChurnTriggered(t *testing.T) {
	assert.False(t, RoleChurnTriggered(11, 12))
	assert.True(t, RoleChurnTriggered(12, 12))
	assert.False(t, RoleChurnTriggered(100, 0))
}

func TestMassLeaveSeverity(t *testing.T) {
	triggered, _ := MassLeaveSeverity(7, 8)
	assert.False(t, triggered)

	triggered, sev := MassLeaveSeverity(8, 8)
	assert.True(t, triggered)
	assert.Equal(t, models.SeverityLow, sev)

	triggered, sev = MassLeaveSeverity(12, 8)
	assert.True(t, triggered)
	assert.Equal(t, models.SeverityMedium, sev)

	triggered, sev = MassLeaveSeverity(24, 8)
	assert.True(t, triggered)
	assert.Equal(t, models.SeverityHigh, sev)

	triggered, _ = MassLeaveSeverity(100, 0)
	assert.False(t, triggered)
}
