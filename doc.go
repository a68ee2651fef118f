// Package hybridtraffic is an adaptive hybrid microscopic/macroscopic
// traffic-flow simulation kernel.
//
// Each lane carries either a per-vehicle (MICRO) representation, stepped
// with IDM car-following and MOBIL lane-changing, or a density-cell (MACRO)
// representation, stepped with a triangular-fundamental-diagram Godunov
// scheme. A per-lane hysteresis controller decides which representation a
// lane should carry on a given tick, and a translator converts a lane's
// state across the boundary when it switches.
//
// Subpackages, roughly in dependency order:
//
//	geometry/   lane/road network: polylines, arc-length parameterization, adjacency
//	vehicle/    per-vehicle state and driver parameters
//	spatial/    bucketed leader/follower index over a lane
//	idm/        intelligent-driver-model car-following
//	mobil/      MOBIL lane-change incentive/safety evaluation
//	micro/      microscopic lane stepper: perceive, decide, integrate, resolve
//	macro/      macroscopic (CTM/Godunov) lane stepper
//	translate/  micro<->macro state translation at a representation switch
//	fsm/        adaptive per-lane mode controller (hysteresis)
//	scheduler/  tick scheduler: worker pool, barrier, snapshot publication
//	simkernel/  top-level façade wiring construction through Step/Snapshot
//
// Construct a Simulation through simkernel, not by wiring scheduler
// directly; the façade owns validating and adapting the construction
// inputs named in the package's external interface.
package hybridtraffic
