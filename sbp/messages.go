package sbp

import (
	"time"

	"github.com/poiesic/cognate/core"
)

// Query is a reasoning request moved between process layers.
type Query struct {
	Query         string
	NumPaths      uint32
	MaxDepth      uint32
	SemanticBoost bool
	MinConfidence float32
}

// VectorSearch is a vector-similarity search request.
type VectorSearch struct {
	Vector    []float32
	TopK      uint32
	Threshold float32
}

// Learn is a learn request.
type Learn struct {
	Content  string
	Source   string
	Category string
}

// ErrorMessage is a transport-level error frame.
type ErrorMessage struct {
	Code    uint32
	Message string
}

// EncodeConcept encodes a concept frame. The embedding is optional and
// preceded by a presence byte; timestamps are microsecond precision.
func EncodeConcept(c *core.Concept) []byte {
	size := 16 + // id
		sizeString(c.Content) +
		4 + 4 + 8 + // strength, confidence, access count
		8 + 8 + // created, modified
		sizeString(c.Source) +
		sizeString(c.Category) +
		1 // vector presence
	if c.Vector != nil {
		size += sizeVector(c.Vector)
	}

	return encodeFrame(MsgConcept, size, func(bs []byte) {
		w := writer{bs: bs}
		w.id(c.Id)
		w.string(c.Content)
		w.float32(c.Strength)
		w.float32(c.Confidence)
		w.uint64(c.AccessCount)
		w.int64(c.CreatedAt.UnixMicro())
		w.int64(c.ModifiedAt.UnixMicro())
		w.string(c.Source)
		w.string(c.Category)
		if c.Vector != nil {
			w.byte(1)
			w.vector(c.Vector)
		} else {
			w.byte(0)
		}
	})
}

// DecodeConcept decodes a concept frame.
func DecodeConcept(frame []byte) (core.Concept, error) {
	bs, err := payload(frame, MsgConcept)
	if err != nil {
		return core.Concept{}, err
	}

	r := reader{bs: bs}
	var c core.Concept
	c.Id = r.id("id")
	c.Content = r.string("content")
	c.Strength = r.float32("strength")
	c.Confidence = r.float32("confidence")
	c.AccessCount = r.uint64("access count")
	c.CreatedAt = time.UnixMicro(r.int64("created timestamp")).UTC()
	c.ModifiedAt = time.UnixMicro(r.int64("modified timestamp")).UTC()
	c.Source = r.string("source")
	c.Category = r.string("category")
	if r.byte("vector presence") == 1 {
		c.Vector = r.vector("vector")
	}
	if err := r.finish(); err != nil {
		return core.Concept{}, err
	}
	return c, nil
}

// EncodeAssociation encodes an association frame. The payload is a
// fixed 57 bytes for predictable allocation and fast bulk scans.
func EncodeAssociation(a *core.Association) []byte {
	return encodeFrame(MsgAssociation, AssociationPayloadSize, func(bs []byte) {
		w := writer{bs: bs}
		w.id(a.SourceId)
		w.id(a.TargetId)
		w.byte(byte(a.Type))
		w.float32(a.Confidence)
		w.float32(a.Weight)
		w.int64(a.CreatedAt.UnixMicro())
		w.int64(a.LastUsedAt.UnixMicro())
	})
}

// DecodeAssociation decodes an association frame.
func DecodeAssociation(frame []byte) (core.Association, error) {
	bs, err := payload(frame, MsgAssociation)
	if err != nil {
		return core.Association{}, err
	}

	r := reader{bs: bs}
	var a core.Association
	a.SourceId = r.id("source id")
	a.TargetId = r.id("target id")
	a.Type = core.AssociationType(r.byte("type"))
	a.Confidence = r.float32("confidence")
	a.Weight = r.float32("weight")
	a.CreatedAt = time.UnixMicro(r.int64("created timestamp")).UTC()
	a.LastUsedAt = time.UnixMicro(r.int64("last used timestamp")).UTC()
	if err := r.finish(); err != nil {
		return core.Association{}, err
	}
	return a, nil
}

func pathPayloadSize(p *core.ReasoningPath) int {
	return 4 + 16*len(p.Concepts) +
		4 + len(p.Types) +
		4 + // confidence
		sizeString(p.Explanation)
}

func marshalPath(p *core.ReasoningPath, w *writer) {
	w.uint32(uint32(len(p.Concepts)))
	for _, id := range p.Concepts {
		w.id(id)
	}
	w.uint32(uint32(len(p.Types)))
	for _, t := range p.Types {
		w.byte(byte(t))
	}
	w.float32(p.Confidence)
	w.string(p.Explanation)
}

func unmarshalPath(r *reader) core.ReasoningPath {
	var p core.ReasoningPath
	conceptCount := r.count("concept count", 16)
	if r.err == nil && conceptCount > 0 {
		p.Concepts = make([]core.ID, 0, conceptCount)
		for i := uint32(0); i < conceptCount; i++ {
			p.Concepts = append(p.Concepts, r.id("concept id"))
		}
	}
	typeCount := r.count("type count", 1)
	if r.err == nil && typeCount > 0 {
		p.Types = make([]core.AssociationType, 0, typeCount)
		for i := uint32(0); i < typeCount; i++ {
			p.Types = append(p.Types, core.AssociationType(r.byte("association type")))
		}
	}
	p.Confidence = r.float32("confidence")
	p.Explanation = r.string("explanation")
	return p
}

// EncodePath encodes a reasoning path frame. A zero-step path (single
// concept, no edges) is valid.
func EncodePath(p *core.ReasoningPath) []byte {
	return encodeFrame(MsgPath, pathPayloadSize(p), func(bs []byte) {
		w := writer{bs: bs}
		marshalPath(p, &w)
	})
}

// DecodePath decodes a reasoning path frame.
func DecodePath(frame []byte) (core.ReasoningPath, error) {
	bs, err := payload(frame, MsgPath)
	if err != nil {
		return core.ReasoningPath{}, err
	}

	r := reader{bs: bs}
	p := unmarshalPath(&r)
	if err := r.finish(); err != nil {
		return core.ReasoningPath{}, err
	}
	return p, nil
}

// EncodeQuery encodes a query frame.
func EncodeQuery(q *Query) []byte {
	size := sizeString(q.Query) + 4 + 4 + 1 + 4
	return encodeFrame(MsgQuery, size, func(bs []byte) {
		w := writer{bs: bs}
		w.string(q.Query)
		w.uint32(q.NumPaths)
		w.uint32(q.MaxDepth)
		if q.SemanticBoost {
			w.byte(1)
		} else {
			w.byte(0)
		}
		w.float32(q.MinConfidence)
	})
}

// DecodeQuery decodes a query frame.
func DecodeQuery(frame []byte) (Query, error) {
	bs, err := payload(frame, MsgQuery)
	if err != nil {
		return Query{}, err
	}

	r := reader{bs: bs}
	var q Query
	q.Query = r.string("query")
	q.NumPaths = r.uint32("num paths")
	q.MaxDepth = r.uint32("max depth")
	q.SemanticBoost = r.byte("semantic boost") == 1
	q.MinConfidence = r.float32("min confidence")
	if err := r.finish(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// EncodeResult encodes an answer frame, including its supporting paths
// and alternatives.
func EncodeResult(a *core.Answer) []byte {
	size := sizeString(a.Primary) +
		4 + 4 + 8 + // confidence, consensus, concepts accessed
		4 // path count
	for i := range a.Paths {
		size += pathPayloadSize(&a.Paths[i])
	}
	size += 4 // alternative count
	for _, alt := range a.Alternatives {
		size += sizeString(alt)
	}

	return encodeFrame(MsgResult, size, func(bs []byte) {
		w := writer{bs: bs}
		w.string(a.Primary)
		w.float32(a.Confidence)
		w.float32(a.ConsensusStrength)
		w.uint64(uint64(a.ConceptsAccessed))
		w.uint32(uint32(len(a.Paths)))
		for i := range a.Paths {
			marshalPath(&a.Paths[i], &w)
		}
		w.uint32(uint32(len(a.Alternatives)))
		for _, alt := range a.Alternatives {
			w.string(alt)
		}
	})
}

// DecodeResult decodes an answer frame.
func DecodeResult(frame []byte) (core.Answer, error) {
	bs, err := payload(frame, MsgResult)
	if err != nil {
		return core.Answer{}, err
	}

	r := reader{bs: bs}
	var a core.Answer
	a.Primary = r.string("primary answer")
	a.Confidence = r.float32("confidence")
	a.ConsensusStrength = r.float32("consensus strength")
	a.ConceptsAccessed = int(r.uint64("concepts accessed"))
	// A path encodes to at least 16 bytes, an alternative to at least 4,
	// which bounds how many the remaining payload can legitimately hold.
	pathCount := r.count("path count", 16)
	if r.err == nil && pathCount > 0 {
		a.Paths = make([]core.ReasoningPath, 0, pathCount)
		for i := uint32(0); i < pathCount && r.err == nil; i++ {
			a.Paths = append(a.Paths, unmarshalPath(&r))
		}
	}
	altCount := r.count("alternative count", 4)
	if r.err == nil && altCount > 0 {
		a.Alternatives = make([]string, 0, altCount)
		for i := uint32(0); i < altCount; i++ {
			a.Alternatives = append(a.Alternatives, r.string("alternative"))
		}
	}
	if err := r.finish(); err != nil {
		return core.Answer{}, err
	}
	return a, nil
}

// EncodeVectorSearch encodes a vector search frame.
func EncodeVectorSearch(v *VectorSearch) []byte {
	size := sizeVector(v.Vector) + 4 + 4
	return encodeFrame(MsgVectorSearch, size, func(bs []byte) {
		w := writer{bs: bs}
		w.vector(v.Vector)
		w.uint32(v.TopK)
		w.float32(v.Threshold)
	})
}

// DecodeVectorSearch decodes a vector search frame.
func DecodeVectorSearch(frame []byte) (VectorSearch, error) {
	bs, err := payload(frame, MsgVectorSearch)
	if err != nil {
		return VectorSearch{}, err
	}

	r := reader{bs: bs}
	var v VectorSearch
	v.Vector = r.vector("vector")
	v.TopK = r.uint32("top k")
	v.Threshold = r.float32("threshold")
	if err := r.finish(); err != nil {
		return VectorSearch{}, err
	}
	return v, nil
}

// EncodeLearn encodes a learn request frame.
func EncodeLearn(l *Learn) []byte {
	size := sizeString(l.Content) + sizeString(l.Source) + sizeString(l.Category)
	return encodeFrame(MsgLearn, size, func(bs []byte) {
		w := writer{bs: bs}
		w.string(l.Content)
		w.string(l.Source)
		w.string(l.Category)
	})
}

// DecodeLearn decodes a learn request frame.
func DecodeLearn(frame []byte) (Learn, error) {
	bs, err := payload(frame, MsgLearn)
	if err != nil {
		return Learn{}, err
	}

	r := reader{bs: bs}
	var l Learn
	l.Content = r.string("content")
	l.Source = r.string("source")
	l.Category = r.string("category")
	if err := r.finish(); err != nil {
		return Learn{}, err
	}
	return l, nil
}

// EncodeError encodes an error frame.
func EncodeError(e *ErrorMessage) []byte {
	size := 4 + sizeString(e.Message)
	return encodeFrame(MsgError, size, func(bs []byte) {
		w := writer{bs: bs}
		w.uint32(e.Code)
		w.string(e.Message)
	})
}

// DecodeError decodes an error frame.
func DecodeError(frame []byte) (ErrorMessage, error) {
	bs, err := payload(frame, MsgError)
	if err != nil {
		return ErrorMessage{}, err
	}

	r := reader{bs: bs}
	var e ErrorMessage
	e.Code = r.uint32("code")
	e.Message = r.string("message")
	if err := r.finish(); err != nil {
		return ErrorMessage{}, err
	}
	return e, nil
}
