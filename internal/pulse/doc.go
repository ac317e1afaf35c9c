// Package pulse defines the core entities and boundary interfaces shared
// across the ingestion pipelines: unemployment observations, job listings,
// businesses and livability stats, plus the Store they are persisted into.
package pulse
