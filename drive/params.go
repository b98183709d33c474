package drive

// TMCL-style command bytes. Naming mirrors the Trinamic vocabulary the
// Python original's PyTrinamic-backed driver used (ROR/ROL/MST/MVP/SAP/
// GAP/SGP/GGP), since the wire protocol modeled here is that family.
const (
	cmdROR = 1  // rotate right (positive velocity)
	cmdROL = 2  // rotate left (negative velocity)
	cmdMST = 3  // motor stop
	cmdMVP = 4  // move to position
	cmdSAP = 5  // set axis parameter
	cmdGAP = 6  // get axis parameter
	cmdSGP = 9  // set global parameter
	cmdGGP = 10 // get global parameter
	cmdGIO = 15 // get digital/analog input
)

// mvpType selects the addressing mode of a MVP command; only absolute
// moves are used by this module (goto verbs always operate in the mount
// frame, never relative to the current commanded position).
const mvpTypeAbsolute = 0

// gioType selects digital vs analog input for a GIO command.
const gioTypeAnalog = 1

// Axis parameter numbers. AxisParamMaxVelocity (4) is the one spec.md calls
// out by number directly ("axis_parameters map (including parameter 4 =
// max velocity in microsteps)"); the others follow the same TMCL axis
// parameter numbering the original's _APs enum used.
const (
	AxisParamTargetPosition  int32 = 0
	AxisParamActualPosition  int32 = 1
	AxisParamTargetVelocity  int32 = 2
	AxisParamActualVelocity  int32 = 3
	AxisParamMaxVelocity     int32 = 4
	AxisParamMaxAcceleration int32 = 5
	AxisParamStatusFlags     int32 = 206
	AxisParamErrorFlags      int32 = 207
	AxisParamEncoderPosition int32 = 209
)

// Global parameter numbers. GlobalParamSerialAddress is read at startup to
// discover which physical serial port is wired to which axis (spec.md §3,
// "port assignment is discovered, not hard-coded").
const (
	GlobalParamSerialAddress int32 = 66
)

// Well-known serial addresses identifying an axis by its reported module
// address, per spec.md §6 ("1 ⇒ azimuth, 2 ⇒ elevation").
const (
	SerialAddressAzimuth   = 1
	SerialAddressElevation = 2
)
