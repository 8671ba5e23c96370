// Package process supervises a long-running child process.
//
// The bridge uses it to run the miio protocol agent next to itself when
// miio.agent.enabled is set. A Supervisor starts the binary, logs its
// output line by line, restarts it after unexpected exits and terminates
// the whole process group when its context is cancelled.
//
//	sup := process.NewSupervisor(process.Config{
//	    Name:   "miio-agent",
//	    Binary: "/usr/local/bin/miio-agent",
//	    Probe:  miioClient.Ping,
//	}, logger)
//	err := sup.Run(ctx)
//
// A Probe, when set, acts as a watchdog: after three consecutive failures
// the child is killed and restarted like any other exit.
package process
