// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package model defines the data structures for the application. This file
// provides factory functions for hardcoded example instances used for
// few-shot prompting. Embedding a concrete example of the desired JSON inside
// the categorization prompt keeps the model output consistent and parsable.
package model

// GetExampleCategorizedResult returns a sample site-work categorization used
// as the few-shot example inside the categorization prompt.
func GetExampleCategorizedResult() *CategorizedResult {
	return &CategorizedResult{
		VideoType: VideoTypeSiteWork,
		ConstructionInfo: &ConstructionInfo{
			WorkTypes: []string{"excavation", "earth moving"},
			Equipment: []EquipmentCount{
				{Name: "excavator", Count: 2},
				{Name: "dump truck", Count: 3},
			},
			FilmingTechnique: []string{"drone aerial", "fixed wide shot"},
		},
		EducationalInfo: nil,
		GeneralInfo: &GeneralInfo{
			Location:     "open construction site",
			TimeOfDay:    "daytime",
			Weather:      "clear",
			MainSubjects: []string{"excavator", "dump truck", "site workers"},
		},
		ConfidenceScore: 0.92,
		Summary:         "Drone footage of an excavation site where two excavators load three dump trucks.",
	}
}
