// Package lessonloop is the client-side sync engine for the LessonLoop
// tutoring platform. It keeps a full local replica of the caller's
// visible world (availability slots, lessons, chats, profiles, posts,
// notifications) and reconciles it against the remote authority over a
// WebSocket event channel.
//
// Reads never touch the network: they are served from the in-memory
// replica, which is also persisted to a local cache so a restart starts
// warm. Writes apply locally first and are queued as intents for the
// authority; an explicit rejection rolls the write back, anything else
// keeps it queued across reconnects.
//
// Typical usage:
//
//	cfg, err := lessonloop.FromEnv()
//	if err != nil { ... }
//	client, err := lessonloop.New(cfg)
//	if err != nil { ... }
//	if err := client.Connect(ctx); err != nil { ... }
//	defer client.Close(ctx)
//
//	lesson, err := client.BookSlot(slotID, lessonloop.Occupant{ID: studentID, Name: name})
package lessonloop
