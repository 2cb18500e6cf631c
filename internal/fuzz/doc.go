// Package fuzztests houses Go fuzz harnesses for the ownck front ends and
// the checker. They guard against panics and runaway allocations on
// arbitrary input; verdicts are not asserted beyond internal consistency.
//
// Назначение: загрузить байты в FileSet, разобрать их и прогнать трекер.
package fuzztests
