// Package model defines the core types shared by the cache and its collaborators.
//
// A native record is a value in the host application's own index-addressed format.
// Collaborators wrap their parsed records in a type implementing NativeValue; the
// cache never looks inside the value beyond that interface.
//
// Domain objects (the interchange side) are opaque: the cache only tracks their
// schema type, application id and Layer.
package model
