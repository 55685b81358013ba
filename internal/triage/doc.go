// Package triage is the business boundary for the solicitation scoring
// engine. It defines the knockout rules, the LLM-backed technical-fit
// analyzer, the scoring policy and classifier, the batch engine, the Service
// (run lifecycle, async dispatch), the Store interface, and the domain models.
package triage
