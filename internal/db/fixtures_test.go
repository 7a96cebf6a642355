package db

import "github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"

func sampleRecord(source string) *models.Record {
	return &models.Record{
		Source: source,
		Entries: []models.Entry{{
			DocumentID: "TSJN-01-02-0001",
			Title:      "To John Page",
			Project:    models.Project{Publication: "Papers of Thomas Jefferson", Volume: "1"},
			Authors:    []models.Party{{Name: "Thomas Jefferson", URI: "r87835264"}},
			Recipients: []models.Party{{Name: "John Page"}},
			DateFrom:   "1762-12-25",
			Location:   &models.Party{Name: "Fairfields", URI: "r59791516"},
			Index: []models.IndexTerm{
				{Main: models.Term{Text: "Monticello", Label: models.LabelPlace, URI: "r12773443"}},
				{
					Main:   models.Term{Text: "tobacco", Label: models.LabelTerm},
					Midsub: &models.Term{Text: "prices"},
				},
			},
		}},
	}
}
