// Package domain contains the core business entities, value objects, and
// domain logic of the moderation service: moderation tasks and their state
// machine, ads with their owners, and the feature set the classifier scores.
// It is independent of any specific infrastructure or delivery mechanism.
package domain
