package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testCoverageGate() *CoverageGate {
	cfg := CoverageConfig{
		Enabled: true,
		Compare: mustPatterns(`\bvs\b|\bversus\b|difference between`),
		Generic: mustPatterns(`\btell me about\b|\boverview\b`),
	}
	return NewCoverageGate(cfg, NewEntityExtractor(testAliases()), nil)
}

func TestCoverageGate_ComparisonMissingEntity(t *testing.T) {
	gate := testCoverageGate()
	state := State{
		Input:  "mqtt vs kafka for telemetry",
		Status: StatusOK,
		Docs: []Document{
			newDoc("mqtt qos", "mqtt.pdf", 1, nil, "mqtt"),
			newDoc("mqtt topics", "mqtt.pdf", 2, nil, "mqtt"),
		},
	}
	out := gate.Check(state)
	assert.Equal(t, StatusRefuse, out.Status)
	assert.Equal(t, "Missing document coverage for: kafka", out.RefusalReason)
}

func TestCoverageGate_ComparisonFullyCovered(t *testing.T) {
	gate := testCoverageGate()
	state := State{
		Input:  "difference between mqtt and kafka",
		Status: StatusOK,
		Docs: []Document{
			newDoc("mqtt qos", "mqtt.pdf", 1, nil, "mqtt"),
			newDoc("kafka acks", "kafka.pdf", 4, nil, "kafka"),
		},
	}
	out := gate.Check(state)
	assert.Equal(t, StatusOK, out.Status)
}

func TestCoverageGate_GenericSingleEntity(t *testing.T) {
	gate := testCoverageGate()
	state := State{
		Input:  "tell me about modbus",
		Status: StatusOK,
		Docs:   []Document{newDoc("mqtt qos", "mqtt.pdf", 1, nil, "mqtt")},
	}
	out := gate.Check(state)
	assert.Equal(t, StatusRefuse, out.Status)
	assert.Equal(t, "Missing document coverage for: modbus", out.RefusalReason)
}

func TestCoverageGate_MissingListedInAliasOrder(t *testing.T) {
	gate := testCoverageGate()
	state := State{
		Input:  "modbus vs mqtt vs kafka",
		Status: StatusOK,
		Docs:   []Document{newDoc("unrelated", "x.pdf", 1, nil)},
	}
	out := gate.Check(state)
	assert.Equal(t, StatusRefuse, out.Status)
	// mqtt and kafka precede modbus in the alias table.
	assert.Equal(t, "Missing document coverage for: mqtt, kafka, modbus", out.RefusalReason)
}

func TestCoverageGate_PlainQueryIgnored(t *testing.T) {
	gate := testCoverageGate()
	state := State{
		Input:  "what port does kafka use",
		Status: StatusOK,
		Docs:   []Document{newDoc("mqtt qos", "mqtt.pdf", 1, nil, "mqtt")},
	}
	// Neither a comparison nor a broad query, so coverage does not apply
	// even though kafka is uncovered.
	assert.Equal(t, StatusOK, gate.Check(state).Status)
}

func TestCoverageGate_ComparisonNeedsTwoEntities(t *testing.T) {
	gate := testCoverageGate()
	state := State{
		Input:  "mqtt versus the rest",
		Status: StatusOK,
		Docs:   []Document{newDoc("kafka acks", "kafka.pdf", 1, nil, "kafka")},
	}
	// One named entity is not enough to treat this as a comparison, and it
	// is not a broad query either.
	assert.Equal(t, StatusOK, gate.Check(state).Status)
}

func TestCoverageGate_DisabledAndDecidedStates(t *testing.T) {
	off := NewCoverageGate(CoverageConfig{}, NewEntityExtractor(testAliases()), nil)
	state := State{Input: "mqtt vs kafka", Status: StatusOK, Docs: nil}
	assert.Equal(t, StatusOK, off.Check(state).Status)

	gate := testCoverageGate()
	refused := State{Input: "mqtt vs kafka", Status: StatusRefuse, SkipLLM: true, RefusalReason: "earlier"}
	assert.Equal(t, "earlier", gate.Check(refused).RefusalReason)
}
