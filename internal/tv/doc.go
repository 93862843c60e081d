// Package tv ties discovery, the UPnP control model and a command channel
// into one Session per television.
//
// A Session always owns a remote.Channel for key presses. When the TV was
// found through SSDP, its three description documents are loaded as well
// and the Session exposes the extended property API (volume, mute, sources,
// channel, picture settings, transport state). Sessions created from a bare
// host only support SendKey and DeviceInfo.
//
// Protocol selection follows the configuration first: an explicit method,
// or a port that implies one. Otherwise the TV's model year decides, with
// 2014 and older using the legacy protocol.
package tv
