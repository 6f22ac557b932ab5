package courselookup

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseRecordText(t *testing.T) {
	c := sampleCourses()[0]
	assert.Equal(t, "COMP248 COMP Object-Oriented Programming I 248", c.Text())
	rec := c.Record()
	assert.Equal(t, "COMP248", rec["_id"])
	assert.Equal(t, []any{"Jane Doe"}, rec["instructors"])
}

func TestDecodeCourses(t *testing.T) {
	input := `[
		{"_id":"COMP248","subject":"COMP","title":"Object-Oriented  Programming I","catalog":"248","instructors":["Jane Doe"]},
		{"subject":"MATH","title":"Vectors and Matrices","catalog":204,"instructors":[{"firstName":"Benoit","lastName":"Cote"},{"name":"Ann Lee"}]},
		{"title":"no identity"},
		{"_id":"SOEN287","subject":"SOEN","title":"Web Programming","catalog":"287","instructors":"Alice Wong, Bob Ray"}
	]`
	var skipped []int
	courses, err := DecodeCourses(strings.NewReader(input), func(i int, err error) {
		skipped = append(skipped, i)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, skipped)
	require.Len(t, courses, 3)

	assert.Equal(t, "Object-Oriented Programming I", courses[0].Title)
	assert.Equal(t, CourseRecord{
		ID:          "MATH204",
		Subject:     "MATH",
		Title:       "Vectors and Matrices",
		CatalogCode: "204",
		Instructors: []string{"Benoit Cote", "Ann Lee"},
	}, courses[1])
	assert.Equal(t, []string{"Alice Wong", "Bob Ray"}, courses[2].Instructors)
}

func TestDecodeCoursesRejectsNonArray(t *testing.T) {
	_, err := DecodeCourses(strings.NewReader(`{"_id":"x"}`), nil)
	assert.Error(t, err)
	_, err = DecodeCourses(strings.NewReader(``), nil)
	assert.Error(t, err)
	_, err = DecodeCourses(strings.NewReader(`[{"_id":"A"}, {bad`), nil)
	assert.Error(t, err)
}

func TestInstructorsFrom(t *testing.T) {
	assert.Nil(t, instructorsFrom(nil))
	assert.Nil(t, instructorsFrom(42))
	assert.Equal(t, []string{"A B"}, instructorsFrom([]string{" A  B ", ""}))
	assert.Equal(t, []string{"Jane Doe", "John Smith"}, instructorsFrom(`["Jane Doe", {"name":"John Smith"}]`))
}

type structCourse struct {
	ID      string   `json:"_id"`
	Subject string   `json:"subject"`
	Title   string   `json:"title"`
	Catalog int      `json:"catalog"`
	Profs   []string `json:"instructors"`
}

func TestAdaptRecords(t *testing.T) {
	ctx := context.Background()
	values := []any{
		sampleCourses()[0],
		&structCourse{Subject: "COMP", Title: "Operating Systems", Catalog: 346, Profs: []string{"Alice Wong"}},
		map[string]string{"_id": "ENGR201", "title": "Professional Practice"},
		42,
		map[int]string{1: "x"},
	}
	var skipped []int
	courses, err := AdaptRecords(ctx, values, func(i int, err error) { skipped = append(skipped, i) })
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, skipped)
	assert.Equal(t, []string{"COMP248", "COMP346", "ENGR201"}, courseIDs(courses))
	assert.Equal(t, []string{"Alice Wong"}, courses[1].Instructors)

	_, err = AdaptRecords(ctx, "not a slice", nil)
	assert.Error(t, err)

	structs := []structCourse{{ID: "X1", Title: "T"}}
	courses, err = AdaptRecords(ctx, structs, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"X1"}, courseIDs(courses))
}

func TestAdaptRecordUnsupported(t *testing.T) {
	_, err := AdaptRecord(context.Background(), 3.14)
	assert.ErrorIs(t, err, errNoAdapter)
	var nilCourse *CourseRecord
	_, err = AdaptRecord(context.Background(), nilCourse)
	assert.ErrorIs(t, err, errNoAdapter)
}
