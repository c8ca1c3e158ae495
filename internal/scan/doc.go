// Package scan finds the project headers a C/C++ file includes directly.
//
// It does not run a preprocessor. It only recognizes the following forms
//
//	#include "foo.h"
//	#include <foo.h>
//	#include_next <foo.h>
//	#import "foo.h"
//	#include FOO_H
//
// and, to support the last one, simple object-like macros defined in the
// same file
//
//	#define FOO_H "foo.h"
//	#define FOO_H <foo.h>
//	#define FOO_H OTHER_FOO_H
//
// Since `#if` is not evaluated, every value a macro is given is expanded.
// Comments and line continuations inside directives are not supported and
// such directives are skipped, as is any include that cannot be resolved
// against the search path: those are system or external headers and stay
// outside of the tracked graph.
package scan
