package domain

import (
	"fmt"
	"slices"
	"strings"
)

// SubjectKind discriminates what is being reviewed. Each kind owns a fixed
// set of rating categories.
type SubjectKind string

const (
	SubjectKindTutor  SubjectKind = "TUTOR"
	SubjectKindCourse SubjectKind = "COURSE"
)

// Category names a rating dimension.
type Category string

// Tutor categories.
const (
	CategorySubjectExpertise Category = "subjectExpertise"
	CategoryTeachingClarity  Category = "teachingClarity"
	CategoryCommunication    Category = "communication"
	CategoryPatience         Category = "patience"
	CategoryPunctuality      Category = "punctuality"
	CategoryAdaptability     Category = "adaptability"
)

// Course categories.
const (
	CategoryContentQuality   Category = "contentQuality"
	CategoryCourseStructure  Category = "courseStructure"
	CategoryPracticalValue   Category = "practicalValue"
	CategoryDifficultyLevel  Category = "difficultyLevel"
	CategorySupportMaterials Category = "supportMaterials"
	CategoryValueForMoney    Category = "valueForMoney"
)

var categorySets = map[SubjectKind][]Category{
	SubjectKindTutor: {
		CategorySubjectExpertise,
		CategoryTeachingClarity,
		CategoryCommunication,
		CategoryPatience,
		CategoryPunctuality,
		CategoryAdaptability,
	},
	SubjectKindCourse: {
		CategoryContentQuality,
		CategoryCourseStructure,
		CategoryPracticalValue,
		CategoryDifficultyLevel,
		CategorySupportMaterials,
		CategoryValueForMoney,
	},
}

// ValidSubjectKinds returns every subject kind.
func ValidSubjectKinds() []SubjectKind {
	return []SubjectKind{SubjectKindTutor, SubjectKindCourse}
}

// ParseSubjectKind accepts a kind in any letter case ("tutor", "COURSE").
func ParseSubjectKind(s string) (SubjectKind, error) {
	k := SubjectKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown subject kind %q", s)
	}
	return k, nil
}

// Valid reports whether k is a known kind.
func (k SubjectKind) Valid() bool {
	_, ok := categorySets[k]
	return ok
}

// Categories returns the category set of k, or nil for an unknown kind.
func (k SubjectKind) Categories() []Category {
	return slices.Clone(categorySets[k])
}

// Allows reports whether c belongs to the category set of k.
func (k SubjectKind) Allows(c Category) bool {
	return slices.Contains(categorySets[k], c)
}

func (k SubjectKind) String() string { return string(k) }
