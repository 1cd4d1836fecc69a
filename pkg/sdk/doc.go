// Package insightfinder provides an embedded Go client for the
// insightfinder document search engine.
//
// The client runs the engine in-process: documents are vectorized through
// the configured Embedder, stored in the in-memory backend, and migrated to
// the indexed backend once the corpus outgrows the configured threshold.
//
//	client, _ := insightfinder.New(
//	    insightfinder.WithEmbedder(myEmbedder),
//	    insightfinder.WithThreshold(100),
//	)
//	defer client.Close()
//
//	_, _ = client.Add(ctx, []insightfinder.Document{
//	    {Name: "notes.txt", Content: "The cat sat on the mat"},
//	})
//	hits, _ := client.Search(ctx, "feline", 5)
package insightfinder
