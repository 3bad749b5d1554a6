// Package hierarchy defines the joint hierarchy for tendon.
// A hierarchy is a forest of named transforms, each holding a local
// translation, rotation and scale relative to its parent. World-space
// queries compose the local transforms from the root down.
package hierarchy
