// Package objects implements the store of converted domain objects.
//
// Objects are appended and indexed by layer, schema type, (schema type,
// application id) and, once linked, (schema type, native index). An object on
// LayerBoth is indexed under all three layers.
package objects
