package main

// Flag structs to decouple cobra from logic for testing.

type StatsFlags struct {
	JSON bool
}

type ValidateFlags struct {
	Quiet bool
}

type ToggleFlags struct {
	ID string
}
