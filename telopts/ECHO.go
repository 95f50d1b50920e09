package telopts

// ECHO indicates whether the local will repeat text sent from the remote back to the remote.  In practice,
// clients will tend to echo locally if the remote is not set to echo, so ECHO is used far more often
// to stop the remote from echoing locally than actually echoing to the remote. The server offers
// WILL ECHO purely so that the client turns its own echo off.
const ECHO Code = 1
