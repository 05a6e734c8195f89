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

// Package main contains the API route definitions for the server. This file
// defines the operational statistics endpoint used by dashboards.
//
// Functions:
//   - Dashboard: Sets up the "/stats" route group with a summary of job,
//     file, and result counts.
package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Dashboard configures the statistics API routes.
// It creates a new route group "/stats" nested under the main API router
// group and exposes a counts summary for operational dashboards.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the new "/stats" route group will be added.
func Dashboard(r *gin.RouterGroup) {
	stats := r.Group("/stats")
	{
		// Handler for GET /stats
		stats.GET("", func(c *gin.Context) {
			jobs := state.jobs.List()
			byStatus := make(map[string]int)
			for _, job := range jobs {
				byStatus[string(job.Status)]++
			}
			c.JSON(http.StatusOK, gin.H{
				"jobs":           len(jobs),
				"jobs_by_status": byStatus,
				"files_uploaded": len(state.files.List()),
				"results_stored": len(state.results.List()),
			})
		})
	}
}
