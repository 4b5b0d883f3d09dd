package schema

// bound is a shorthand for optional inclusive constraint values.
func bound(v float64) *float64 {
	return &v
}

var builtin = &Node{
	Kind: KindGroup,
	Children: []*Node{
		{
			Name:  "capture",
			Kind:  KindGroup,
			Title: "Capture Settings",
			Children: []*Node{
				{Name: "fs", Kind: KindInt, Title: "Sample Rate", Description: "Hz"},
				{Name: "fc", Kind: KindInt, Title: "Center Frequency", Description: "Hz"},
				{
					Name:  "device",
					Kind:  KindGroup,
					Title: "Device Settings",
					Children: []*Node{
						{Name: "type", Kind: KindString, Title: "Device Type"},
						{Name: "agcSetPoint", Kind: KindInt, Max: bound(0), Title: "AGC Set Point", Description: "dBFS"},
						{Name: "gainReduction", Kind: KindInt, Min: bound(20), Max: bound(59), Title: "Gain Reduction", Description: "20-59 dB"},
						{Name: "lnaState", Kind: KindInt, Min: bound(1), Max: bound(9), Title: "LNA State", Description: "1-9"},
						{Name: "dabNotch", Kind: KindBool, Title: "DAB Notch Filter"},
						{Name: "rfNotch", Kind: KindBool, Title: "RF Notch Filter"},
						{Name: "bandwidthNumber", Kind: KindInt, Title: "Bandwidth Number"},
					},
				},
			},
		},
	},
}

func init() {
	// A broken built-in schema is a programming error; fail process start.
	if err := Validate(builtin); err != nil {
		panic(err)
	}
}

// Builtin returns the retina node settings schema. The returned tree is
// shared and must not be mutated.
func Builtin() *Node {
	return builtin
}
