package courselookup

func sampleCourses() []CourseRecord {
	return []CourseRecord{
		{ID: "COMP248", Subject: "COMP", Title: "Object-Oriented Programming I", CatalogCode: "248", Instructors: []string{"Jane Doe"}},
		{ID: "COMP249", Subject: "COMP", Title: "Object-Oriented Programming II", CatalogCode: "249", Instructors: []string{"Jane Doe", "John Smith"}},
		{ID: "COMP352", Subject: "COMP", Title: "Data Structures and Algorithms", CatalogCode: "352", Instructors: []string{"jane  DOE", "Benoît Côté"}},
		{ID: "MATH204", Subject: "MATH", Title: "Vectors and Matrices", CatalogCode: "204", Instructors: []string{"Benoit Cote"}},
		{ID: "COMP346", Subject: "COMP", Title: "Operating Systems", CatalogCode: "346", Instructors: []string{"Alice Wong"}},
		{ID: "COMP335", Subject: "COMP", Title: "Introduction to Theoretical Computer Science", CatalogCode: "335"},
	}
}

func courseIDs(courses []CourseRecord) []string {
	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	return ids
}
