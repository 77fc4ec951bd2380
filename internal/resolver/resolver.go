// Package resolver implements the quality selection policy: a pure function
// from a variant set and a quality token to exactly one variant. It performs
// no I/O, so the policy is testable without a live extractor.
package resolver

import (
	"errors"
	"fmt"
	"strconv"

	"ytbridge/internal/extractor"
)

var (
	// ErrNoFormats is returned for an empty variant set, whatever the token.
	ErrNoFormats = errors.New("no formats available")
	// ErrInvalidQuality is returned for an unrecognized quality token.
	ErrInvalidQuality = errors.New("invalid quality")
)

// Resolve maps a quality token to one variant of the set.
//
// Tokens: "best" (default when empty), "worst", or a numeric height such as
// "720". Numeric selection prefers an exact height match, then the closest
// height below, then the lowest available height - a degraded match, never
// an error for a non-empty set.
func Resolve(variants []extractor.MediaVariant, token string) (extractor.MediaVariant, error) {
	if len(variants) == 0 {
		return extractor.MediaVariant{}, ErrNoFormats
	}

	switch token {
	case "", "best":
		return best(variants), nil
	case "worst":
		return worst(variants), nil
	}

	height, err := strconv.Atoi(token)
	if err != nil || height <= 0 {
		return extractor.MediaVariant{}, fmt.Errorf("%w: %q", ErrInvalidQuality, token)
	}

	return nearest(variants, height), nil
}

// videoVariants narrows the set to variants carrying a video track. Falls
// back to the full set when the source offers no video at all.
func videoVariants(variants []extractor.MediaVariant) []extractor.MediaVariant {
	var out []extractor.MediaVariant
	for _, v := range variants {
		if v.HasVideo() {
			out = append(out, v)
		}
	}

	if len(out) == 0 {
		return variants
	}
	return out
}

func best(variants []extractor.MediaVariant) extractor.MediaVariant {
	// combined audio+video variants win over video-only ones
	var combined []extractor.MediaVariant
	for _, v := range variants {
		if v.HasVideo() && v.HasAudio() {
			combined = append(combined, v)
		}
	}

	candidates := combined
	if len(candidates) == 0 {
		candidates = videoVariants(variants)
	}

	chosen := candidates[0]
	for _, v := range candidates[1:] {
		if v.Height > chosen.Height ||
			(v.Height == chosen.Height && v.Bitrate > chosen.Bitrate) {
			chosen = v
		}
	}
	return chosen
}

func worst(variants []extractor.MediaVariant) extractor.MediaVariant {
	candidates := videoVariants(variants)

	chosen := candidates[0]
	for _, v := range candidates[1:] {
		if v.Height < chosen.Height ||
			(v.Height == chosen.Height && v.Bitrate < chosen.Bitrate) {
			chosen = v
		}
	}
	return chosen
}

func nearest(variants []extractor.MediaVariant, height int) extractor.MediaVariant {
	candidates := videoVariants(variants)

	// exact match, then closest below
	var below *extractor.MediaVariant
	for i := range candidates {
		v := &candidates[i]
		if v.Height > height {
			continue
		}
		if below == nil ||
			v.Height > below.Height ||
			(v.Height == below.Height && v.Bitrate > below.Bitrate) {
			below = v
		}
	}
	if below != nil {
		return *below
	}

	// everything is above the requested height, degrade to the lowest one
	chosen := candidates[0]
	for _, v := range candidates[1:] {
		if v.Height < chosen.Height ||
			(v.Height == chosen.Height && v.Bitrate > chosen.Bitrate) {
			chosen = v
		}
	}
	return chosen
}
