// Package websocket provides stream-mode triggers over WebSocket.
//
// Clients connect to /ws, send the trigger request as the first message and
// receive collector output line by line, followed by a final result message.
package websocket
