package concord4

import (
	"encoding/json"
	"fmt"
)

const (
	msgState     = "state"
	msgPanel     = "panel"
	msgPartition = "partition"
	msgZone      = "zone"
	msgCommand   = "command"
)

const (
	cmdArm    = "arm"
	cmdDisarm = "disarm"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type command struct {
	Command   string     `json:"command"`
	Mode      ArmMode    `json:"mode,omitempty"`
	Level     ArmLevel   `json:"level,omitempty"`
	Partition int        `json:"partition"`
	Keys      []Keypress `json:"keys"`
}

func makeCommand(cmd command) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("could not encode %s command: %w", cmd.Command, err)
	}
	return json.Marshal(envelope{Type: msgCommand, Data: data})
}

func decode(msg []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return env, fmt.Errorf("invalid message: %w", err)
	}
	return env, nil
}

// apply merges a pushed message into state, returning the callback ids that
// should be notified.
func apply(state *State, msg []byte) ([]CallbackID, error) {
	env, err := decode(msg)
	if err != nil {
		return nil, err
	}
	return applyEnvelope(state, env)
}

func applyEnvelope(state *State, env envelope) ([]CallbackID, error) {
	switch env.Type {
	case msgState:
		var s State
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return nil, fmt.Errorf("invalid state: %w", err)
		}
		if s.Partitions == nil {
			s.Partitions = map[int]Partition{}
		}
		if s.Zones == nil {
			s.Zones = map[string]Zone{}
		}
		for id, z := range s.Zones {
			if z.ID == "" {
				z.ID = id
				s.Zones[id] = z
			}
		}
		for n, p := range s.Partitions {
			if p.Number == 0 {
				p.Number = n
				s.Partitions[n] = p
			}
		}
		*state = s
		return []CallbackID{CallbackAll}, nil
	case msgPanel:
		var p Panel
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("invalid panel: %w", err)
		}
		state.Panel = p
		return []CallbackID{CallbackAll}, nil
	case msgPartition:
		var p Partition
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("invalid partition: %w", err)
		}
		if state.Partitions == nil {
			state.Partitions = map[int]Partition{}
		}
		state.Partitions[p.Number] = p
		return []CallbackID{p.CallbackID()}, nil
	case msgZone:
		var z Zone
		if err := json.Unmarshal(env.Data, &z); err != nil {
			return nil, fmt.Errorf("invalid zone: %w", err)
		}
		if z.ID == "" {
			return nil, fmt.Errorf("invalid zone: missing id")
		}
		if state.Zones == nil {
			state.Zones = map[string]Zone{}
		}
		state.Zones[z.ID] = z
		return []CallbackID{z.CallbackID()}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}
