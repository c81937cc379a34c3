// Package hmap implements the index of the key-value store: a chained hash
// table with a fixed number of buckets (Table) and a map built from two such
// tables that resizes progressively (Map).
//
// Records live in a paged slot arena owned by the table. Chains link slots by
// index and freed slots are recycled, so a record is never allocated on its own.
//
// Growing the map never rehashes all records at once. When the load factor
// reaches its limit the full table is retired and every later Insert, Lookup or
// Remove migrates at most Options.ResizeWork records into the new table before
// doing its own work. Lookups and removals consult the new table first and the
// retiring one second, inserts always go to the new table.
package hmap
