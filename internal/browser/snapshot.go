package browser

import (
	"fmt"
	"strings"
)

// safeTreeLimit keeps one snapshot within a sane share of the model context.
const safeTreeLimit = 40000

type PageSnapshot struct {
	URL   string
	Title string
	Tree  string
}

// Render formats the snapshot as the tool result text.
func (s *PageSnapshot) Render() string {
	tree := s.Tree
	if len(tree) > safeTreeLimit {
		tree = tree[:safeTreeLimit] + "\n...[TRUNCATED]"
	}
	var sb strings.Builder
	sb.WriteString("### Page state\n")
	fmt.Fprintf(&sb, "- Page URL: %s\n", s.URL)
	fmt.Fprintf(&sb, "- Page Title: %s\n", s.Title)
	sb.WriteString("- Page Snapshot:\n")
	sb.WriteString(tree)
	return sb.String()
}

// snapshotScript marks interactive elements with data-ai-id and returns a
// text tree where each one shows up as "[ref] <tag ...>". When a modal
// dialog is open only its subtree is walked.
const snapshotScript = `() => {
	let idCounter = 1;
	const interactiveTags = new Set(['a', 'button', 'input', 'textarea', 'select', 'details', 'summary']);

	document.querySelectorAll('[data-ai-id]').forEach(el => el.removeAttribute('data-ai-id'));

	function cleanText(text) {
		if (!text) return '';
		const res = text.replace(/\s+/g, ' ').trim();
		return res.length > 100 ? res.slice(0, 100) + '...' : res;
	}

	function isVisible(el) {
		if (!el || !el.getBoundingClientRect) return false;
		if (el.getAttribute('aria-hidden') === 'true') return false;
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return rect.width > 0 && rect.height > 0 &&
			style.visibility !== 'hidden' &&
			style.display !== 'none' &&
			style.opacity !== '0';
	}

	function isInteractive(el) {
		const tag = el.tagName.toLowerCase();
		const role = (el.getAttribute('role') || '').toLowerCase();
		const tabIndex = el.getAttribute('tabindex');
		return interactiveTags.has(tag) ||
			['button', 'link', 'checkbox', 'menuitem', 'tab', 'textbox', 'combobox', 'option', 'searchbox'].includes(role) ||
			(tabIndex !== null && tabIndex !== '-1') ||
			el.onclick != null;
	}

	function escapeAttr(value) {
		return value.replace(/"/g, '\\"');
	}

	function inDialog(el) {
		for (let cur = el; cur && cur !== document.body; cur = cur.parentElement) {
			const role = (cur.getAttribute('role') || '').toLowerCase();
			if (role === 'dialog' || role === 'alertdialog' || cur.getAttribute('aria-modal') === 'true') {
				return true;
			}
		}
		return false;
	}

	function getKind(el) {
		const tag = el.tagName.toLowerCase();
		const role = (el.getAttribute('role') || '').toLowerCase();
		const type = (el.getAttribute('type') || '').toLowerCase();
		if (tag === 'button' || role === 'button') return 'button';
		if (tag === 'a' || role === 'link') return 'link';
		if (tag === 'input') {
			if (type === 'checkbox') return 'checkbox';
			if (type === 'radio') return 'radio';
			if (type === 'search') return 'search';
			return 'input';
		}
		return '';
	}

	function findActiveModal() {
		const selectors = ['[role="dialog"]', '[role="alertdialog"]', '[aria-modal="true"]'];
		let best = null;
		let bestZ = -Infinity;
		for (const el of document.querySelectorAll(selectors.join(','))) {
			if (!isVisible(el)) continue;
			let z = parseInt(window.getComputedStyle(el).zIndex || '0', 10);
			if (Number.isNaN(z)) z = 0;
			if (z >= bestZ) {
				bestZ = z;
				best = el;
			}
		}
		return best;
	}

	function traverse(node, depth) {
		if (!node || depth > 25) return '';

		if (node.nodeType === Node.TEXT_NODE) {
			const text = cleanText(node.textContent);
			return text.length > 2 ? '  '.repeat(depth) + text + '\n' : '';
		}
		if (node.nodeType !== Node.ELEMENT_NODE) return '';

		const el = node;
		const tag = el.tagName.toLowerCase();
		if (['script', 'style', 'svg', 'path', 'noscript', 'iframe'].includes(tag)) return '';
		if (!isVisible(el)) return '';

		const prefix = '  '.repeat(depth);
		let output = '';

		if (isInteractive(el)) {
			const aiId = idCounter++;
			el.setAttribute('data-ai-id', String(aiId));

			const parts = ['<' + tag];
			let label = cleanText(el.innerText || el.textContent || '');
			if (!label) label = cleanText(el.getAttribute('aria-label') || '');
			if (!label) label = cleanText(el.getAttribute('title') || '');
			if ((tag === 'input' || tag === 'textarea') && !label) {
				label = cleanText(el.getAttribute('placeholder') || '');
			}
			if (label) parts.push('label="' + escapeAttr(label) + '"');

			const kind = getKind(el);
			if (kind) parts.push('kind="' + kind + '"');
			if (inDialog(el)) parts.push('context="dialog"');
			if (tag === 'a' && el.getAttribute('href')) {
				parts.push('href="' + escapeAttr(cleanText(el.getAttribute('href'))) + '"');
			}
			if (tag === 'input' || tag === 'textarea') {
				const val = cleanText(el.value);
				if (val) parts.push('value="' + escapeAttr(val) + '"');
			}

			output += prefix + '[' + aiId + '] ' + parts.join(' ') + '>\n';
			// the label already carries the text of simple controls
			if (tag === 'a' || tag === 'button') return output;
		} else if (['h1', 'h2', 'h3', 'h4', 'h5'].includes(tag)) {
			return prefix + '<' + tag + '> ' + cleanText(el.innerText) + '\n';
		}

		for (const child of el.childNodes) {
			output += traverse(child, depth + 1);
		}
		return output;
	}

	const activeModal = findActiveModal();
	const header = activeModal ? '=== ACTIVE DIALOG ===\n' : '';
	return header + traverse(activeModal || document.body, 0);
}`
