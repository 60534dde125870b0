package errors

// messages maps codes to the short human-readable reason shown to the
// requester when an operation is rejected.
var messages = map[Code]string{
	CodeSessionAlreadyOpen: "A game is already in progress on this server.",
	CodeNoActiveSession:    "There is no game in progress.",
	CodeLobbyNotOpen:       "The lobby is not open.",
	CodeGameNotStarted:     "Start the game first.",

	CodeLobbyFull:      "The lobby is full. Try again later.",
	CodeHostCannotJoin: "The host cannot join their own game.",
	CodeAlreadyJoined:  "You have already joined.",
	CodeRosterTooSmall: "At least 4 players are needed to start.",

	CodeEmptyKeyword:        "Provide a keyword.",
	CodeTopicAlreadySent:    "The keyword has already been sent.",
	CodeTopicNotSent:        "Send the keyword first.",
	CodeDayAlreadyAnnounced: "That day has already been announced.",
	CodeDayOutOfOrder:       "Announce the earlier days first.",
	CodeInvalidDay:          "That is not a valid day.",

	CodeNotHost:       "Only the host can do that.",
	CodeNotAuthorized: "Only the host, a server admin, or the bot owner can do that.",
	CodeOwnerOnly:     "Only the bot owner can do that.",
	CodeAdminOnly:     "Only a server admin can do that.",

	CodeDeliveryFailed: "A participant could not receive a DM. Any keywords already sent were deleted; try again.",

	CodeGuildNotRegistered:     "Register this server first.",
	CodeGuildAlreadyRegistered: "This server is already registered.",
	CodeInvalidActivationCode:  "That activation code is not valid.",
	CodeInvalidCodeCount:       "Generate at least one activation code.",

	CodeNotFound: "Nothing found.",
}

// Message returns the user-visible text for a code. Unknown codes fall back
// to a generic failure line so nothing internal leaks into chat.
func Message(code Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}
