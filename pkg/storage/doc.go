// Package storage writes export documents to the output directory.
//
// The Manager creates the directory on construction, remembers which
// artifacts already exist there, and writes each new artifact through a
// temporary file followed by a rename so a reader never sees a partial
// document. A name collision yields "name (1).html", "name (2).html" and so
// on instead of overwriting an earlier export.
//
// Usage:
//
//	manager, err := storage.NewManager("exports")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	path, err := manager.SaveArtifact(export.FileName(false, 0, len(records), time.Now()), bytes.NewReader(doc))
//	if err != nil {
//	    log.Printf("Failed to save export: %v", err)
//	}
package storage
