package hermes

import (
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/domain"
)

const (
	// SubjectInteractionRecorded carries an InteractionRecorded after each confirmed interaction.
	SubjectInteractionRecorded = "rodrigoflow.interaction.recorded"
	// SubjectAgentRegistered is published once when the server starts.
	SubjectAgentRegistered = "rodrigoflow.agent.registered"
)

// InteractionRecorded summarises a persisted interaction. The submitter's
// free text and the coaching response are not included.
type InteractionRecorded struct {
	ID             string    `json:"id"`
	Archetype      string    `json:"archetype"`
	Applied        string    `json:"applied"`
	Submitter      string    `json:"submitter"`
	CreatedAt      time.Time `json:"created_at"`
	ArchetypeKnown bool      `json:"archetype_known"`
	Partial        bool      `json:"partial"`
}

func NewInteractionRecorded(in domain.Interaction, known, partial bool) InteractionRecorded {
	return InteractionRecorded{
		ID:             in.ID,
		Archetype:      in.Archetype,
		Applied:        string(in.Applied),
		Submitter:      in.SubmitterName,
		CreatedAt:      in.CreatedAt,
		ArchetypeKnown: known,
		Partial:        partial,
	}
}

// AgentRegistered announces a running instance.
type AgentRegistered struct {
	Name      string    `json:"name"`
	Model     string    `json:"model"`
	Store     string    `json:"store"`
	StartedAt time.Time `json:"started_at"`
}
