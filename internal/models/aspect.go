package models

import (
	"fmt"
	"strings"
)

// Aspect is one of the five developmental domains
type Aspect string

const (
	AspectGM Aspect = "GM" // Gross Motor
	AspectFM Aspect = "FM" // Fine Motor
	AspectRL Aspect = "RL" // Receptive Language
	AspectEL Aspect = "EL" // Expressive Language
	AspectPS Aspect = "PS" // Personal-Social
)

// Aspects lists every aspect in the order they are presented
func Aspects() []Aspect {
	return []Aspect{AspectGM, AspectFM, AspectRL, AspectEL, AspectPS}
}

var aspectNames = map[Aspect]struct{ en, th string }{
	AspectGM: {"Gross Motor", "ด้านการเคลื่อนไหว"},
	AspectFM: {"Fine Motor", "ด้านกล้ามเนื้อมัดเล็กและสติปัญญา"},
	AspectRL: {"Receptive Language", "ด้านการเข้าใจภาษา"},
	AspectEL: {"Expressive Language", "ด้านการใช้ภาษา"},
	AspectPS: {"Personal-Social", "ด้านการช่วยเหลือตัวเองและสังคม"},
}

// ParseAspect parses an aspect code case-insensitively
func ParseAspect(s string) (Aspect, error) {
	a := Aspect(strings.ToUpper(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("unknown aspect %q", s)
	}
	return a, nil
}

// Valid reports whether a is a known aspect
func (a Aspect) Valid() bool {
	_, ok := aspectNames[a]
	return ok
}

// Name returns the English name
func (a Aspect) Name() string {
	return aspectNames[a].en
}

// ThaiName returns the Thai name shown to raters
func (a Aspect) ThaiName() string {
	return aspectNames[a].th
}
