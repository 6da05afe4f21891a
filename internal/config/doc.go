// Package config provides configuration parsing for MapSync peers.
//
// The configuration is stored in mapsync.yaml. Unknown fields are rejected
// so that typos surface as errors instead of silently using defaults.
// Command-line flags override file values.
//
// # Configuration File Structure
//
//	level: Arena
//	tick: 100ms
//	server:
//	  port: 7777
//	  websocket: ":7778"
//	  admin: "127.0.0.1:9090"
//	session:
//	  write_timeout: 5s
//	  max_frame_size: 67108864
//	  resync_threshold: 16777216
//	  apply_renames: true
//	log:
//	  level: info
//	  format: text
//	scene:
//	  blueprints:
//	    - path: /Game/Blueprints/BP_Door.BP_Door_C
//	      parent: StaticMeshActor
//	  objects:
//	    - name: Cube1
//	      class: StaticMeshActor
//	      location: [100, 0, 0]
//	      mesh: /Game/Meshes/Cube
//	      materials: [/Game/Materials/Brick]
//	    - name: Sun
//	      class: DirectionalLight
//	      color: [1, 0.9, 0.8, 1]
//	      intensity: 10
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	world, err := cfg.NewWorld()
package config
