package telopts

// SUPPRESSGOAHEAD turns the connection into a full-duplex stream where neither side waits for
// IAC GA before transmitting. Together with ECHO it puts most clients into character-at-a-time
// mode, which is what the server calls cbreak.
const SUPPRESSGOAHEAD Code = 3
