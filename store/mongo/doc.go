// Package mongo implements store.Store on the official MongoDB Go driver.
// Job and task IDs come from a counters collection so they stay integers
// and ordered like the SQL backends.
//
// A reservation claims tasks one document at a time with FindOneAndUpdate,
// lowest ID first. Each claim is atomic, so concurrent collections stay
// disjoint, but a collection is not a single snapshot: tasks added while it
// runs may be picked up by it.
//
// The caller owns the client lifecycle; mongo never disconnects it:
//
//	client, _ := mongod.Connect(options.Client().ApplyURI(uri))
//	store := mongo.New(client.Database("taskpool"))
//	store.Migrate(ctx)
package mongo
