package packets

import "errors"

var (
	ErrInvalidFlags             = errors.New("packets: invalid fixed header flags")
	ErrInvalidQos               = errors.New("packets: qos must be 0, 1 or 2")
	ErrOversizedLengthIndicator = errors.New("packets: remaining length indicator exceeds 4 bytes")
	ErrRemainingLengthTooLarge  = errors.New("packets: remaining length exceeds 268435455")
	ErrRemainingLengthMismatch  = errors.New("packets: declared remaining length does not match buffered bytes")
	ErrStringTooLong            = errors.New("packets: string exceeds declared payload length")
	ErrMalformedString          = errors.New("packets: string contains invalid UTF-8 or an embedded NUL")
	ErrMalformedProtocolName    = errors.New("packets: malformed protocol name")
	ErrMalformedProtocolLevel   = errors.New("packets: missing protocol level")
	ErrMalformedFlags           = errors.New("packets: malformed connect flags")
	ErrMissingPacketID          = errors.New("packets: packet identifier required for this qos")
	ErrSurplusPacketID          = errors.New("packets: packet identifier not permitted for qos 0")
	ErrMalformedClientID        = errors.New("packets: malformed client identifier")
	ErrEmptyClientIDPersistent  = errors.New("packets: empty client identifier requires clean session")
	ErrMalformedTopic           = errors.New("packets: topic exceeds 65535 bytes or contains wildcards")
)
