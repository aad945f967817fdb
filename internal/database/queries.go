/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

const (
	// User queries
	queryGetUsers = `
		SELECT id, name, phone, role, password_hash, approved, created_at, updated_at
		FROM users
		ORDER BY created_at, id`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, name, phone, role, password_hash, approved, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT id, name, phone, role, password_hash, approved, created_at, updated_at
		FROM users
		WHERE id = ?`

	queryGetUserByPhone = `
		SELECT id, name, phone, role, password_hash, approved, created_at, updated_at
		FROM users
		WHERE phone = ?`

	queryApproveUser = `
		UPDATE users SET approved = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	// Token queries
	queryInsertToken = `
		INSERT INTO auth_tokens (token, user_id) VALUES (?, ?)`

	queryGetUserByToken = `
		SELECT u.id, u.name, u.phone, u.role, u.password_hash, u.approved, u.created_at, u.updated_at
		FROM users u
		JOIN auth_tokens t ON u.id = t.user_id
		WHERE t.token = ?`

	// Balance queries
	queryGetBalance = `
		SELECT balance
		FROM account_balances
		WHERE actor_type = ? AND actor_id = ?`

	queryGetAllBalances = `
		SELECT id, actor_type, actor_id, balance, last_entry_id, version, updated_at
		FROM account_balances
		WHERE actor_type = ?
		ORDER BY actor_id`

	queryReconcileBalance = `
		SELECT amount
		FROM ledger_entries
		WHERE actor_type = ? AND actor_id = ?`

	// Ledger queries
	queryCheckDuplicateEntry = `
		SELECT id FROM ledger_entries WHERE external_ref = ? LIMIT 1`

	queryGetAccountBalance = `
		SELECT id, balance, version
		FROM account_balances
		WHERE actor_type = ? AND actor_id = ?`

	queryInsertAccountBalance = `
		INSERT INTO account_balances (id, actor_type, actor_id, balance, version)
		VALUES (?, ?, ?, ?, ?)`

	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (
			id, actor_type, actor_id, entry_type, amount, balance_before, balance_after,
			external_ref, parcel_id, reference, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateAccountBalance = `
		UPDATE account_balances
		SET balance = ?, last_entry_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE actor_type = ? AND actor_id = ? AND version = ?`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, entry_id, account_type, account_id, debit_amount, credit_amount)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetLedgerEntries = `
		SELECT id, actor_type, actor_id, entry_type, amount, balance_before, balance_after,
		       external_ref, parcel_id, reference, created_at
		FROM ledger_entries
		WHERE actor_type = ? AND actor_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	// History queries
	queryInsertHistory = `
		INSERT INTO history_entries (id, kind, parcel_id, actor_id, amount, snapshot, recorded_at)
		VALUES (:id, :kind, :parcel_id, :actor_id, :amount, :snapshot, :recorded_at)`

	queryGetHistory = `
		SELECT id, kind, parcel_id, actor_id, amount, snapshot, recorded_at
		FROM history_entries
		ORDER BY recorded_at DESC, rowid DESC
		LIMIT ? OFFSET ?`
)
