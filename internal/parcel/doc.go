// Package parcel derives stable numeric identities for agricultural parcels.
//
// An identity is a salted MurmurHash3 of a canonical descriptor built from the
// boundary ring and metadata, scaled by 100 with the last two digits of the
// observation year appended. Perennial parcels carry the year "0000" and an
// open-ended validity range. The Dictionary maps external field numbers and
// years back to identities with a fixed two-step lookup: the year-agnostic
// entry wins over the year-specific one.
package parcel
