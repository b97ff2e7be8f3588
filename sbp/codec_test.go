package sbp

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/cognate/core"
)

func testConcept() core.Concept {
	return core.Concept{
		Id:          core.IDFromContent("the sky is blue"),
		Content:     "the sky is blue",
		Strength:    2.5,
		Confidence:  0.9,
		AccessCount: 7,
		CreatedAt:   time.UnixMicro(1700000000000000).UTC(),
		ModifiedAt:  time.UnixMicro(1700000000123456).UTC(),
		Source:      "test",
		Category:    "facts",
		Vector:      []float32{0.1, -0.2, 0.3},
	}
}

func testAssociation() core.Association {
	return core.Association{
		SourceId:   core.IDFromContent("dog"),
		TargetId:   core.IDFromContent("mammal"),
		Type:       core.AssociationHierarchical,
		Confidence: 0.85,
		Weight:     3,
		CreatedAt:  time.UnixMicro(1700000000000000).UTC(),
		LastUsedAt: time.UnixMicro(1700000001000000).UTC(),
	}
}

func TestConceptRoundTrip(t *testing.T) {
	t.Run("full concept", func(t *testing.T) {
		original := testConcept()
		decoded, err := DecodeConcept(EncodeConcept(&original))
		require.NoError(t, err)
		assert.Equal(t, original, decoded)
	})

	t.Run("no embedding", func(t *testing.T) {
		original := testConcept()
		original.Vector = nil
		decoded, err := DecodeConcept(EncodeConcept(&original))
		require.NoError(t, err)
		assert.Nil(t, decoded.Vector)
		assert.Equal(t, original, decoded)
	})

	t.Run("empty strings", func(t *testing.T) {
		original := testConcept()
		original.Source = ""
		original.Category = ""
		decoded, err := DecodeConcept(EncodeConcept(&original))
		require.NoError(t, err)
		assert.Equal(t, original, decoded)
	})
}

func TestAssociationRoundTrip(t *testing.T) {
	original := testAssociation()
	decoded, err := DecodeAssociation(EncodeAssociation(&original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestAssociationWireLayout(t *testing.T) {
	assoc := testAssociation()
	frame := EncodeAssociation(&assoc)

	require.Len(t, frame, HeaderSize+AssociationPayloadSize)

	t.Run("header layout", func(t *testing.T) {
		assert.Equal(t, Magic, binary.LittleEndian.Uint32(frame[0:4]))
		assert.Equal(t, Version, frame[4])
		assert.Equal(t, byte(MsgAssociation), frame[5])
		assert.Equal(t, byte(0), frame[6]) // flags
		assert.Equal(t, byte(0), frame[7]) // reserved
		assert.Equal(t, uint64(AssociationPayloadSize), binary.LittleEndian.Uint64(frame[8:16]))
	})

	t.Run("payload layout", func(t *testing.T) {
		payload := frame[HeaderSize:]
		assert.Equal(t, assoc.SourceId[:], payload[0:16])
		assert.Equal(t, assoc.TargetId[:], payload[16:32])
		assert.Equal(t, byte(assoc.Type), payload[32])
		assert.Equal(t, assoc.Confidence, float32frombits(binary.LittleEndian.Uint32(payload[33:37])))
		assert.Equal(t, assoc.Weight, float32frombits(binary.LittleEndian.Uint32(payload[37:41])))
		assert.Equal(t, assoc.CreatedAt.UnixMicro(), int64(binary.LittleEndian.Uint64(payload[41:49])))
		assert.Equal(t, assoc.LastUsedAt.UnixMicro(), int64(binary.LittleEndian.Uint64(payload[49:57])))
	})
}

func TestPathRoundTrip(t *testing.T) {
	t.Run("multi hop path", func(t *testing.T) {
		original := core.ReasoningPath{
			Concepts: []core.ID{
				core.IDFromContent("dog"),
				core.IDFromContent("mammal"),
				core.IDFromContent("animal"),
			},
			Types: []core.AssociationType{
				core.AssociationHierarchical,
				core.AssociationHierarchical,
			},
			Confidence:  0.65,
			Explanation: "dog --[hierarchical]--> mammal --[hierarchical]--> animal",
		}
		decoded, err := DecodePath(EncodePath(&original))
		require.NoError(t, err)
		assert.Equal(t, original, decoded)
	})

	t.Run("zero step path is valid", func(t *testing.T) {
		original := core.ReasoningPath{
			Concepts:   []core.ID{core.IDFromContent("dog")},
			Confidence: 1,
		}
		decoded, err := DecodePath(EncodePath(&original))
		require.NoError(t, err)
		assert.Equal(t, original, decoded)
	})
}

func TestQueryRoundTrip(t *testing.T) {
	original := Query{
		Query:         "what is a dog?",
		NumPaths:      3,
		MaxDepth:      5,
		SemanticBoost: true,
		MinConfidence: 0.4,
	}
	decoded, err := DecodeQuery(EncodeQuery(&original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestResultRoundTrip(t *testing.T) {
	original := core.Answer{
		Primary:           "mammal",
		Confidence:        0.745,
		ConsensusStrength: 0.5,
		Paths: []core.ReasoningPath{
			{
				Concepts:    []core.ID{core.IDFromContent("dog"), core.IDFromContent("mammal")},
				Types:       []core.AssociationType{core.AssociationHierarchical},
				Confidence:  0.85,
				Explanation: "dog --[hierarchical]--> mammal",
			},
		},
		ConceptsAccessed: 3,
		Alternatives:     []string{"animal"},
	}
	decoded, err := DecodeResult(EncodeResult(&original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	t.Run("rejected answer with no paths", func(t *testing.T) {
		rejected := core.Answer{Primary: "insufficient evidence", Confidence: 0}
		decoded, err := DecodeResult(EncodeResult(&rejected))
		require.NoError(t, err)
		assert.Equal(t, rejected, decoded)
	})
}

func TestVectorSearchRoundTrip(t *testing.T) {
	original := VectorSearch{
		Vector:    []float32{0.5, -0.5, 1},
		TopK:      10,
		Threshold: 0.7,
	}
	decoded, err := DecodeVectorSearch(EncodeVectorSearch(&original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestLearnRoundTrip(t *testing.T) {
	original := Learn{Content: "a dog is a mammal", Source: "cli", Category: "animals"}
	decoded, err := DecodeLearn(EncodeLearn(&original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestErrorRoundTrip(t *testing.T) {
	original := ErrorMessage{Code: 42, Message: "unknown concept"}
	decoded, err := DecodeError(EncodeError(&original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeHeaderRejectsMalformedFrames(t *testing.T) {
	valid := EncodeError(&ErrorMessage{Code: 1, Message: "x"})

	t.Run("truncated header", func(t *testing.T) {
		_, err := DecodeHeader(valid[:HeaderSize-1])
		assert.ErrorIs(t, err, ErrTruncated)
		assert.ErrorIs(t, err, ErrProtocol)
	})

	t.Run("bad magic", func(t *testing.T) {
		frame := append([]byte(nil), valid...)
		frame[0] ^= 0xff
		_, err := DecodeHeader(frame)
		assert.ErrorIs(t, err, ErrBadMagic)
	})

	t.Run("unsupported version", func(t *testing.T) {
		frame := append([]byte(nil), valid...)
		frame[4] = 99
		_, err := DecodeHeader(frame)
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("unknown message type", func(t *testing.T) {
		frame := append([]byte(nil), valid...)
		frame[5] = 200
		_, err := DecodeHeader(frame)
		assert.ErrorIs(t, err, ErrUnknownMessageType)
	})

	t.Run("length mismatch", func(t *testing.T) {
		frame := append([]byte(nil), valid...)
		frame = frame[:len(frame)-1]
		_, err := DecodeHeader(frame)
		assert.ErrorIs(t, err, ErrLengthMismatch)
	})

	t.Run("wrong message type for decoder", func(t *testing.T) {
		_, err := DecodeLearn(valid)
		assert.ErrorIs(t, err, ErrWrongMessageType)
	})

	t.Run("truncated payload", func(t *testing.T) {
		concept := testConcept()
		frame := EncodeConcept(&concept)
		// Shrink the payload but keep the declared length consistent so
		// the failure happens in field parsing, not the header check.
		truncated := append([]byte(nil), frame[:len(frame)-8]...)
		binary.LittleEndian.PutUint64(truncated[8:16], uint64(len(truncated)-HeaderSize))
		_, err := DecodeConcept(truncated)
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		frame := EncodeLearn(&Learn{Content: "x"})
		padded := append(append([]byte(nil), frame...), 0, 0, 0)
		binary.LittleEndian.PutUint64(padded[8:16], uint64(len(padded)-HeaderSize))
		_, err := DecodeLearn(padded)
		assert.ErrorIs(t, err, ErrTrailingBytes)
	})
}

// rawFrame builds a frame with a valid header around an arbitrary
// payload, bypassing the encoders.
func rawFrame(msgType MessageType, payload []byte) []byte {
	bs := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(bs[0:4], Magic)
	bs[4] = Version
	bs[5] = byte(msgType)
	binary.LittleEndian.PutUint64(bs[8:16], uint64(len(payload)))
	copy(bs[HeaderSize:], payload)
	return bs
}

func TestDecodeRejectsHostileCounts(t *testing.T) {
	// Each frame carries a valid header but declares an element count far
	// beyond what its payload could hold. Decoding must reject the count
	// before allocating for it.

	t.Run("path concept count", func(t *testing.T) {
		payload := make([]byte, 4)
		binary.LittleEndian.PutUint32(payload, 0xFFFFFFFF)
		_, err := DecodePath(rawFrame(MsgPath, payload))
		assert.ErrorIs(t, err, ErrTruncated)
		assert.ErrorIs(t, err, ErrProtocol)
	})

	t.Run("path type count", func(t *testing.T) {
		payload := make([]byte, 8) // concept count 0, then a hostile type count
		binary.LittleEndian.PutUint32(payload[4:8], 0xFFFFFFFF)
		_, err := DecodePath(rawFrame(MsgPath, payload))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("result path count", func(t *testing.T) {
		// empty primary, confidence, consensus, concepts accessed, then
		// a hostile path count at offset 20
		payload := make([]byte, 24)
		binary.LittleEndian.PutUint32(payload[20:24], 0xFFFFFFFF)
		_, err := DecodeResult(rawFrame(MsgResult, payload))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("result alternative count", func(t *testing.T) {
		payload := make([]byte, 28) // path count 0, alternative count at offset 24
		binary.LittleEndian.PutUint32(payload[24:28], 0xFFFFFFFF)
		_, err := DecodeResult(rawFrame(MsgResult, payload))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("vector element count", func(t *testing.T) {
		payload := make([]byte, 12)
		binary.LittleEndian.PutUint32(payload[0:4], 0xFFFFFFFF)
		_, err := DecodeVectorSearch(rawFrame(MsgVectorSearch, payload))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("concept embedding count", func(t *testing.T) {
		concept := testConcept()
		concept.Vector = nil
		frame := EncodeConcept(&concept)
		// Flip the vector presence byte on and declare a huge element
		// count where the payload ends.
		frame[len(frame)-1] = 1
		hostile := make([]byte, 4)
		binary.LittleEndian.PutUint32(hostile, 0xFFFFFFFF)
		frame = append(frame, hostile...)
		binary.LittleEndian.PutUint64(frame[8:16], uint64(len(frame)-HeaderSize))
		_, err := DecodeConcept(frame)
		assert.ErrorIs(t, err, ErrTruncated)
	})
}

func float32frombits(bits uint32) float32 {
	return math.Float32frombits(bits)
}
