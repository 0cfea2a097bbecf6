// Package trigger decides what to do with an incoming chat message.
//
// A message either mentions the bot (acknowledge), carries a YouTube link
// in an allowed channel (ingest), or is ignored. Threads pass the channel
// check when their own name is the designated thread name or their parent
// channel is allowed.
package trigger
