// Package types defines the Shelter interface, entity types, configuration,
// and the standard errors for the shelter records core.
package types
