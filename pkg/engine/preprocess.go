package engine

import "strings"

// preprocessSource rewrites rig source into something zygomys can read.
//
// zygomys parses a-b as subtraction and has no ; comments, while rig files
// use kebab-case builtins, kebab-case keywords and Lisp comments. The
// rewrite works token by token outside string literals:
//
//	twist-chain       -> twist_chain
//	:root-target      -> "__kw_root_target"
//	;; note           -> // note
//
// Keywords become tagged strings rather than symbols so that a keyword never
// collides with a user variable. Their names are canonicalized with
// underscores, so :tip-target and :tip_target are the same keyword.
func preprocessSource(source string) string {
	rw := rewriter{src: source}
	rw.out.Grow(len(source) + len(source)/4)
	for rw.pos < len(rw.src) {
		switch c := rw.src[rw.pos]; {
		case c == '"':
			rw.quoted('"', true)
		case c == '`':
			rw.quoted('`', false)
		case c == ';':
			rw.comment()
		case c == ':' && rw.startsKeyword():
			rw.keyword()
		case c == '-' && rw.joinsIdent():
			rw.out.WriteByte('_')
			rw.pos++
		default:
			rw.out.WriteByte(c)
			rw.pos++
		}
	}
	return rw.out.String()
}

// canonicalKeyword maps a keyword as written to the name builtins look up.
func canonicalKeyword(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

type rewriter struct {
	src string
	pos int
	out strings.Builder
}

// quoted copies a string literal through unchanged. Unterminated literals
// run to the end of the source and are left for the reader to reject.
func (rw *rewriter) quoted(delim byte, escapes bool) {
	start := rw.pos
	rw.pos++
	for rw.pos < len(rw.src) && rw.src[rw.pos] != delim {
		if escapes && rw.src[rw.pos] == '\\' {
			rw.pos++
		}
		rw.pos++
	}
	if rw.pos < len(rw.src) {
		rw.pos++
	}
	if rw.pos > len(rw.src) {
		rw.pos = len(rw.src)
	}
	rw.out.WriteString(rw.src[start:rw.pos])
}

// comment turns a run of semicolons into // and copies the rest of the line.
func (rw *rewriter) comment() {
	for rw.pos < len(rw.src) && rw.src[rw.pos] == ';' {
		rw.pos++
	}
	end := strings.IndexByte(rw.src[rw.pos:], '\n')
	if end < 0 {
		end = len(rw.src) - rw.pos
	}
	rw.out.WriteString("//")
	rw.out.WriteString(rw.src[rw.pos : rw.pos+end])
	rw.pos += end
}

// startsKeyword reports whether the colon at pos opens a keyword. := is the
// zygomys assignment operator and is left alone.
func (rw *rewriter) startsKeyword() bool {
	return rw.pos+1 < len(rw.src) && isLetter(rw.src[rw.pos+1])
}

func (rw *rewriter) keyword() {
	end := rw.pos + 1
	for end < len(rw.src) && (isIdentChar(rw.src[end]) || rw.src[end] == '-') {
		end++
	}
	rw.out.WriteByte('"')
	rw.out.WriteString(kwPrefix)
	rw.out.WriteString(canonicalKeyword(rw.src[rw.pos+1 : end]))
	rw.out.WriteByte('"')
	rw.pos = end
}

// joinsIdent reports whether the hyphen at pos sits inside an identifier,
// as in copy-location, rather than acting as minus or a negative sign.
func (rw *rewriter) joinsIdent() bool {
	if rw.pos == 0 || rw.pos+1 >= len(rw.src) {
		return false
	}
	return isIdentChar(rw.src[rw.pos-1]) && isLetter(rw.src[rw.pos+1])
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
