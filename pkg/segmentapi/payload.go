package segmentapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"segmap/internal/domain"
)

// PayloadVariant tells which protocol version produced a segment response.
type PayloadVariant int

const (
	// VariantEncoded is the legacy {"returned-segments": "<json string>"} body.
	VariantEncoded PayloadVariant = iota + 1
	// VariantDirect is a bare JSON array of segments.
	VariantDirect
)

func (v PayloadVariant) String() string {
	switch v {
	case VariantEncoded:
		return "encoded"
	case VariantDirect:
		return "direct"
	default:
		return "unknown"
	}
}

// SegmentsPayload is a decoded /update-segments body.
type SegmentsPayload struct {
	Variant  PayloadVariant
	Segments domain.SegmentSet
}

type encodedResponse struct {
	ReturnedSegments *string `json:"returned-segments"`
}

// ParseSegments resolves the response shape once, at the boundary.
func ParseSegments(body []byte) (SegmentsPayload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return SegmentsPayload{}, fmt.Errorf("%w: empty body", ErrParseFailure)
	}

	switch trimmed[0] {
	case '[':
		set, err := decodeSet(trimmed)
		if err != nil {
			return SegmentsPayload{}, err
		}
		return SegmentsPayload{Variant: VariantDirect, Segments: set}, nil

	case '{':
		var env encodedResponse
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return SegmentsPayload{}, fmt.Errorf("%w: decoding envelope: %v", ErrParseFailure, err)
		}
		if env.ReturnedSegments == nil {
			return SegmentsPayload{}, fmt.Errorf("%w: missing returned-segments", ErrParseFailure)
		}
		set, err := decodeSet([]byte(*env.ReturnedSegments))
		if err != nil {
			return SegmentsPayload{}, err
		}
		return SegmentsPayload{Variant: VariantEncoded, Segments: set}, nil

	default:
		return SegmentsPayload{}, fmt.Errorf("%w: unexpected response shape", ErrParseFailure)
	}
}

func decodeSet(data []byte) (domain.SegmentSet, error) {
	var set domain.SegmentSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: decoding segments: %v", ErrParseFailure, err)
	}
	if set == nil {
		set = domain.SegmentSet{}
	}
	return set, nil
}

// ParsePath decodes a /best-path body. Missing fields keep zero values.
func ParsePath(body []byte) (*domain.PathResult, error) {
	var result domain.PathResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decoding path: %v", ErrParseFailure, err)
	}
	return &result, nil
}
