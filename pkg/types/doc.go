// Package types defines the item model, the Repository and Store contracts,
// configuration, and the standard error values for the personal file store.
//
// An Item is a tagged union over two kinds, Folder and File. Both share the
// same metadata (ID, parent, name, timestamps, change counter); a File
// additionally carries FileAttrs. Entity methods only modify the struct in
// memory; callers persist through a Repository.
package types
