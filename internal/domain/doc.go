// Package domain defines the booking, catalog and session types shared by the
// application and adapter layers, together with the pure scheduling rules
// (wall-clock arithmetic, overlap detection, occupancy) that operate on them.
//
// Repository interfaces live next to the types they serve and are implemented
// by the Directus adapter.
package domain
