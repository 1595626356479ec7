// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Variation describes the axes a content type or property type varies by.
// It is a bit set: Culture and Segment may be combined.
type Variation uint8

const (
	VariationNothing           Variation = 0
	VariationCulture           Variation = 1
	VariationSegment           Variation = 2
	VariationCultureAndSegment           = VariationCulture | VariationSegment
)

// VariesByCulture reports whether the culture bit is set.
func (v Variation) VariesByCulture() bool { return v&VariationCulture != 0 }

// VariesBySegment reports whether the segment bit is set.
func (v Variation) VariesBySegment() bool { return v&VariationSegment != 0 }

// Mask restricts v to the axes allowed by owner. A property type can only
// vary by culture when the content type holding it does.
func (v Variation) Mask(owner Variation) Variation { return v & owner }

// Validate rejects the axes that cannot be stored.
func (v Variation) Validate() error {
	if v.VariesBySegment() {
		return Errorf(ErrNotSupported, "segment variation (%s)", v)
	}
	if v > VariationCultureAndSegment {
		return Errorf(ErrInvalidOperation, "unknown variation %d", uint8(v))
	}
	return nil
}

func (v Variation) String() string {
	switch v {
	case VariationNothing:
		return "Nothing"
	case VariationCulture:
		return "Culture"
	case VariationSegment:
		return "Segment"
	case VariationCultureAndSegment:
		return "CultureAndSegment"
	default:
		return "Unknown"
	}
}
