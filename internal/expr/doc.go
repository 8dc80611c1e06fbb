// Package expr implements the argument expression language: a hand-written
// tokenizer and recursive-descent parser producing a small AST, and an
// evaluator that walks the AST against a metadata lookup context.
//
// The language covers property access into document front matter
// (fm.path.to.key / file.path.to.key), arithmetic, comparison and logical
// operators, a conditional form if(cond, then, else), string literals, and a
// contains() built-in. Evaluation follows loose, JavaScript-like coercion
// rules: string/number duality for arithmetic and comparison, operand-
// returning short-circuit logic, and a truthiness model where the literal
// strings "false", "0", "null" and "undefined" are falsy.
//
// Every property access performed during evaluation is recorded so callers
// can build the watched key set that drives refresh-relevance decisions.
package expr
