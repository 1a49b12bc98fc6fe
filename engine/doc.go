/*
Package engine contains the stem playback runtime of the player.

The Engine owns all playback state: the cue list, the active cue session, the
Transport with its playable handles and the mixer matrix. The whole of it is
mutated by exactly one goroutine, the engine loop, which alternates between
draining control messages from the Broker and rendering one block of mixed
audio; the blocking device write paces the loop, so every state change is
serialized on the audio clock and the front end never observes a half-applied
operation.

Cue switching is guarded by a generation token. Every activation increments
the generation and fans out one acquisition worker per stem; each worker
reports back with the generation it was issued under, and the loop silently
drops (and releases) any result from a superseded generation. At most one
generation's results ever reach the Transport or the mixer state, which is
what keeps a rapid cue double-switch from leaving stale audio behind.
*/
package engine
