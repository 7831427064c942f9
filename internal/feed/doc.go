// Package feed adapts YouTube channel RSS feeds into item descriptors for the
// ingestion pipeline.
package feed
