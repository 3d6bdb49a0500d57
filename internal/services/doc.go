// Package services holds cross-cutting helpers shared by the pipeline stages
// and the external service clients: the sentinel error taxonomy used for
// failure classification, and context annotation for structured logging.
package services
